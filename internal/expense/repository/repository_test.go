package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/expenso/internal/expense/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:expense_repo_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Expense{}, &domain.Approval{}))
	return db
}

func seedPendingExpense(t *testing.T, db *gorm.DB, node *snowflake.Node) domain.Expense {
	t.Helper()
	expense := domain.Expense{
		ID:          node.Generate(),
		CompanyID:   node.Generate(),
		UserID:      node.Generate(),
		PolicyID:    node.Generate(),
		Amount:      125_000,
		Status:      domain.StatusPending,
		SubmittedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&expense).Error)
	return expense
}

func TestCompleteExpenseTransitionsExactlyOnce(t *testing.T) {
	db := openTestDB(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	r := Provide()
	ctx := context.Background()

	expense := seedPendingExpense(t, db, node)

	first := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	ok, err := r.CompleteExpense(ctx, db, expense.ID, first)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second attempt finds no pending row to flip and reports the loss.
	second := first.Add(5 * time.Minute)
	ok, err = r.CompleteExpense(ctx, db, expense.ID, second)
	require.NoError(t, err)
	assert.False(t, ok)

	var stored domain.Expense
	require.NoError(t, db.First(&stored, "id = ?", expense.ID).Error)
	assert.Equal(t, domain.StatusApproved, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(first))
}

func TestMinPendingRequiredStepIgnoresOptionalSteps(t *testing.T) {
	db := openTestDB(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	r := Provide()
	ctx := context.Background()

	expense := seedPendingExpense(t, db, node)
	steps := []struct {
		step     int
		required bool
		status   string
	}{
		{1, false, domain.StatusPending},
		{2, true, domain.StatusPending},
		{3, true, domain.StatusPending},
	}
	for _, s := range steps {
		require.NoError(t, db.Create(&domain.Approval{
			ID:              node.Generate(),
			ExpenseID:       expense.ID,
			StepNumber:      s.step,
			ApproverID:      node.Generate(),
			ApproverLevelID: node.Generate(),
			Status:          s.status,
			Required:        s.required,
		}).Error)
	}

	min, err := r.MinPendingRequiredStep(ctx, db, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, min)

	require.NoError(t, db.Model(&domain.Approval{}).
		Where("expense_id = ? AND step_number = ?", expense.ID, 2).
		Update("status", domain.StatusApproved).Error)

	min, err = r.MinPendingRequiredStep(ctx, db, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, min)

	require.NoError(t, db.Model(&domain.Approval{}).
		Where("expense_id = ? AND step_number = ?", expense.ID, 3).
		Update("status", domain.StatusApproved).Error)

	// Only the optional step remains; nothing gates ordering anymore.
	min, err = r.MinPendingRequiredStep(ctx, db, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, min)
}
