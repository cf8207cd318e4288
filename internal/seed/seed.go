package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/expenso/internal/org/domain"
	policydomain "github.com/smallbiznis/expenso/internal/policy/domain"
	"gorm.io/gorm"
)

const sampleCompanyName = "TechCorp Solutions"

// EnsureSampleCompany seeds a small demo org so a fresh install can submit
// expenses immediately. It is a no-op when any company already exists.
func EnsureSampleCompany(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing orgdomain.Company
		err := tx.WithContext(ctx).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		company := orgdomain.Company{
			ID:   node.Generate(),
			Name: sampleCompanyName,
		}
		if err := tx.WithContext(ctx).Create(&company).Error; err != nil {
			return err
		}

		team := orgdomain.Team{
			ID:        node.Generate(),
			CompanyID: company.ID,
			Name:      "Technology",
		}
		if err := tx.WithContext(ctx).Create(&team).Error; err != nil {
			return err
		}

		levelNames := []string{"CTO", "VP", "Director", "AD", "SEM", "Manager", "SDE3"}
		levels := make([]orgdomain.HierarchyLevel, 0, len(levelNames))
		for i, name := range levelNames {
			levels = append(levels, orgdomain.HierarchyLevel{
				ID:          node.Generate(),
				CompanyID:   company.ID,
				TeamID:      team.ID,
				LevelNumber: i + 1,
				LevelName:   name,
			})
		}
		if err := tx.WithContext(ctx).Create(&levels).Error; err != nil {
			return err
		}

		users := []orgdomain.User{
			{Email: "cto@techcorp.com", Name: "Alice Chen", HierarchyLevelID: levels[0].ID},
			{Email: "vp@techcorp.com", Name: "Bob Smith", HierarchyLevelID: levels[1].ID},
			{Email: "director@techcorp.com", Name: "Carol Johnson", HierarchyLevelID: levels[2].ID},
			{Email: "ad@techcorp.com", Name: "David Wilson", HierarchyLevelID: levels[3].ID},
			{Email: "sem@techcorp.com", Name: "Eve Davis", HierarchyLevelID: levels[4].ID},
			{Email: "manager@techcorp.com", Name: "Frank Miller", HierarchyLevelID: levels[5].ID},
			{Email: "sde3@techcorp.com", Name: "Grace Taylor", HierarchyLevelID: levels[6].ID},
		}
		for i := range users {
			users[i].ID = node.Generate()
			users[i].CompanyID = company.ID
			users[i].TeamID = team.ID
			users[i].Active = true
		}
		if err := tx.WithContext(ctx).Create(&users).Error; err != nil {
			return err
		}

		smallEquipment := policydomain.Policy{
			ID:          node.Generate(),
			CompanyID:   company.ID,
			Category:    "equipment",
			Name:        "Small Equipment",
			Description: "Laptops, monitors under $2000",
			MinAmount:   0,
			MaxAmount:   199_999,
			Active:      true,
		}
		largeEquipment := policydomain.Policy{
			ID:          node.Generate(),
			CompanyID:   company.ID,
			Category:    "equipment",
			Name:        "Large Equipment",
			Description: "Servers, high-end equipment over $2000",
			MinAmount:   200_000,
			MaxAmount:   99_999_999_999,
			Active:      true,
		}
		travel := policydomain.Policy{
			ID:          node.Generate(),
			CompanyID:   company.ID,
			Category:    "travel",
			Name:        "Business Travel",
			Description: "All business travel expenses",
			MinAmount:   0,
			MaxAmount:   99_999_999_999,
			Active:      true,
		}
		policies := []policydomain.Policy{smallEquipment, largeEquipment, travel}
		if err := tx.WithContext(ctx).Create(&policies).Error; err != nil {
			return err
		}

		steps := []policydomain.ApprovalStep{
			{PolicyID: smallEquipment.ID, StepOrder: 1, RequiredLevel: 6, Description: "Manager approval required"},

			{PolicyID: largeEquipment.ID, StepOrder: 1, RequiredLevel: 6, Description: "Manager approval required"},
			{PolicyID: largeEquipment.ID, StepOrder: 2, RequiredLevel: 5, Description: "SEM approval required"},
			{PolicyID: largeEquipment.ID, StepOrder: 3, RequiredLevel: 4, Description: "AD approval required"},

			{PolicyID: travel.ID, StepOrder: 1, RequiredLevel: 6, Description: "Manager approval required"},
			{PolicyID: travel.ID, StepOrder: 2, RequiredLevel: 5, Description: "SEM approval required"},
		}
		for i := range steps {
			steps[i].ID = node.Generate()
			steps[i].TeamScope = policydomain.ScopeSubmitter
			steps[i].IsRequired = true
		}
		return tx.WithContext(ctx).Create(&steps).Error
	})
}
