package seed

import (
	"testing"

	"github.com/glebarez/sqlite"
	expensedomain "github.com/smallbiznis/expenso/internal/expense/domain"
	orgdomain "github.com/smallbiznis/expenso/internal/org/domain"
	policydomain "github.com/smallbiznis/expenso/internal/policy/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:seed_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Company{},
		&orgdomain.Team{},
		&orgdomain.HierarchyLevel{},
		&orgdomain.User{},
		&policydomain.Policy{},
		&policydomain.ApprovalStep{},
		&expensedomain.Expense{},
		&expensedomain.Approval{},
	))
	return db
}

func TestEnsureSampleCompany(t *testing.T) {
	db := openSeedDB(t)

	require.NoError(t, EnsureSampleCompany(db))

	var companies, teams, levels, users, policies, steps int64
	require.NoError(t, db.Model(&orgdomain.Company{}).Count(&companies).Error)
	require.NoError(t, db.Model(&orgdomain.Team{}).Count(&teams).Error)
	require.NoError(t, db.Model(&orgdomain.HierarchyLevel{}).Count(&levels).Error)
	require.NoError(t, db.Model(&orgdomain.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&policydomain.Policy{}).Count(&policies).Error)
	require.NoError(t, db.Model(&policydomain.ApprovalStep{}).Count(&steps).Error)

	assert.Equal(t, int64(1), companies)
	assert.Equal(t, int64(1), teams)
	assert.Equal(t, int64(7), levels)
	assert.Equal(t, int64(7), users)
	assert.Equal(t, int64(3), policies)
	assert.Equal(t, int64(6), steps)

	// Running twice must not duplicate anything.
	require.NoError(t, EnsureSampleCompany(db))
	require.NoError(t, db.Model(&orgdomain.Company{}).Count(&companies).Error)
	assert.Equal(t, int64(1), companies)

	var manager orgdomain.User
	require.NoError(t, db.Where("email = ?", "manager@techcorp.com").First(&manager).Error)
	var managerLevel orgdomain.HierarchyLevel
	require.NoError(t, db.Where("id = ?", manager.HierarchyLevelID).First(&managerLevel).Error)
	assert.Equal(t, 6, managerLevel.LevelNumber)
	assert.Equal(t, "Manager", managerLevel.LevelName)
}
