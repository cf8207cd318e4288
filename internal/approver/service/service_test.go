package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/expenso/internal/approver/domain"
	"github.com/smallbiznis/expenso/internal/approver/repository"
	orgdomain "github.com/smallbiznis/expenso/internal/org/domain"
	policydomain "github.com/smallbiznis/expenso/internal/policy/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

type resolverFixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	company orgdomain.Company
	tech    orgdomain.Team
	finance orgdomain.Team
	users   map[string]orgdomain.User
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:approver_svc_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Company{},
		&orgdomain.Team{},
		&orgdomain.HierarchyLevel{},
		&orgdomain.User{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	f := &resolverFixture{db: db, node: node, users: map[string]orgdomain.User{}}
	f.company = orgdomain.Company{ID: node.Generate(), Name: "TechCorp Solutions"}
	require.NoError(t, db.Create(&f.company).Error)

	f.tech = orgdomain.Team{ID: node.Generate(), CompanyID: f.company.ID, Name: "Technology"}
	require.NoError(t, db.Create(&f.tech).Error)
	f.finance = orgdomain.Team{ID: node.Generate(), CompanyID: f.company.ID, Name: "Finance"}
	require.NoError(t, db.Create(&f.finance).Error)

	f.addUser(t, "tech-director", f.tech, 3, "Director")
	f.addUser(t, "tech-manager", f.tech, 6, "Manager")
	f.addUser(t, "tech-sde", f.tech, 7, "SDE3")
	f.addUser(t, "fin-controller", f.finance, 5, "Controller")

	return f
}

func (f *resolverFixture) addUser(t *testing.T, key string, team orgdomain.Team, levelNumber int, levelName string) {
	t.Helper()
	level := orgdomain.HierarchyLevel{
		ID:          f.node.Generate(),
		CompanyID:   f.company.ID,
		TeamID:      team.ID,
		LevelNumber: levelNumber,
		LevelName:   levelName,
	}
	require.NoError(t, f.db.Create(&level).Error)
	user := orgdomain.User{
		ID:               f.node.Generate(),
		CompanyID:        f.company.ID,
		TeamID:           team.ID,
		Email:            key + "@techcorp.test",
		Name:             key,
		HierarchyLevelID: level.ID,
		Active:           true,
	}
	require.NoError(t, f.db.Create(&user).Error)
	f.users[key] = user
}

func (f *resolverFixture) resolver() domain.Service {
	return New(Params{Log: zap.NewNop(), Repo: repository.Provide()})
}

func step(order, level int, scope string) policydomain.ApprovalStep {
	return policydomain.ApprovalStep{
		StepOrder:     order,
		RequiredLevel: level,
		TeamScope:     scope,
		IsRequired:    true,
	}
}

func TestResolvePicksLeastSeniorQualifier(t *testing.T) {
	f := newResolverFixture(t)
	svc := f.resolver()
	submitter := f.users["tech-sde"]

	// Both the Director (3) and the Manager (6) satisfy a level-6 step; the
	// Manager is the least-senior qualifier and wins.
	candidate, err := svc.Resolve(context.Background(), f.db, &submitter, step(1, 6, policydomain.ScopeSubmitter))
	require.NoError(t, err)
	assert.Equal(t, f.users["tech-manager"].ID, candidate.UserID)
	assert.Equal(t, 6, candidate.LevelNumber)
	assert.Equal(t, "Manager", candidate.LevelName)
}

func TestResolveExcludesSubmitter(t *testing.T) {
	f := newResolverFixture(t)
	svc := f.resolver()
	submitter := f.users["tech-manager"]

	candidate, err := svc.Resolve(context.Background(), f.db, &submitter, step(1, 6, policydomain.ScopeSubmitter))
	require.NoError(t, err)
	assert.Equal(t, f.users["tech-director"].ID, candidate.UserID)
}

func TestResolveSkipsInactiveUsers(t *testing.T) {
	f := newResolverFixture(t)
	svc := f.resolver()
	submitter := f.users["tech-sde"]

	require.NoError(t, f.db.Model(&orgdomain.User{}).
		Where("id = ?", f.users["tech-manager"].ID).
		Update("active", false).Error)

	candidate, err := svc.Resolve(context.Background(), f.db, &submitter, step(1, 6, policydomain.ScopeSubmitter))
	require.NoError(t, err)
	assert.Equal(t, f.users["tech-director"].ID, candidate.UserID)
}

func TestResolveSubmitterScopeStaysInTeam(t *testing.T) {
	f := newResolverFixture(t)
	svc := f.resolver()
	submitter := f.users["tech-sde"]

	// The Finance controller sits at level 5 but belongs to another team,
	// so a submitter-scoped level-5 step falls to the tech Director.
	candidate, err := svc.Resolve(context.Background(), f.db, &submitter, step(1, 5, policydomain.ScopeSubmitter))
	require.NoError(t, err)
	assert.Equal(t, f.users["tech-director"].ID, candidate.UserID)
}

func TestResolveOtherScopesSearchCompanyWide(t *testing.T) {
	f := newResolverFixture(t)
	svc := f.resolver()
	submitter := f.users["tech-sde"]

	for _, scope := range []string{
		policydomain.ScopeFinance,
		policydomain.ScopeHR,
		policydomain.ScopeLegal,
		policydomain.ScopeCompanyWide,
	} {
		candidate, err := svc.Resolve(context.Background(), f.db, &submitter, step(1, 5, scope))
		require.NoError(t, err, scope)
		assert.Equal(t, f.users["fin-controller"].ID, candidate.UserID, scope)
	}
}

func TestResolveReportsMissingQualifier(t *testing.T) {
	f := newResolverFixture(t)
	svc := f.resolver()
	submitter := f.users["tech-sde"]

	_, err := svc.Resolve(context.Background(), f.db, &submitter, step(2, 1, policydomain.ScopeSubmitter))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoQualifiedApprover)
	assert.Contains(t, err.Error(), "step 2")
}
