package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expenso/internal/expense/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertExpense(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Create(expense).Error
}

func (r *repo) InsertApproval(ctx context.Context, db *gorm.DB, approval *domain.Approval) error {
	return db.WithContext(ctx).Create(approval).Error
}

func (r *repo) FindExpenseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Expense, error) {
	return r.findExpense(ctx, db, id, false)
}

func (r *repo) LockExpenseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Expense, error) {
	return r.findExpense(ctx, db, id, true)
}

func (r *repo) findExpense(ctx context.Context, db *gorm.DB, id snowflake.ID, lock bool) (*domain.Expense, error) {
	var expense domain.Expense
	stmt := db.WithContext(ctx).Model(&domain.Expense{}).Where("id = ?", id)
	if lock && supportsRowLocks(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := stmt.Limit(1).Scan(&expense).Error
	if err != nil {
		return nil, err
	}
	if expense.ID == 0 {
		return nil, nil
	}
	return &expense, nil
}

func (r *repo) FindExpenseDetail(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ExpenseDetail, error) {
	var detail domain.ExpenseDetail
	err := db.WithContext(ctx).Raw(
		`SELECT e.id, e.company_id, e.user_id, e.policy_id, e.amount, e.description,
		        e.status, e.submitted_at, e.completed_at,
		        u.name AS user_name, p.name AS policy_name
		 FROM expenses e
		 JOIN users u ON u.id = e.user_id
		 JOIN policies p ON p.id = e.policy_id
		 WHERE e.id = ?`,
		id,
	).Scan(&detail).Error
	if err != nil {
		return nil, err
	}
	if detail.ID == 0 {
		return nil, nil
	}
	return &detail, nil
}

func (r *repo) FindPendingApproval(ctx context.Context, db *gorm.DB, expenseID, approverID snowflake.ID) (*domain.Approval, error) {
	var approval domain.Approval
	stmt := db.WithContext(ctx).
		Model(&domain.Approval{}).
		Where("expense_id = ? AND approver_id = ? AND status = ?", expenseID, approverID, domain.StatusPending)
	if supportsRowLocks(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := stmt.Order("step_number ASC").Limit(1).Scan(&approval).Error
	if err != nil {
		return nil, err
	}
	if approval.ID == 0 {
		return nil, nil
	}
	return &approval, nil
}

func (r *repo) MinPendingRequiredStep(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) (int, error) {
	var step sql.NullInt64
	err := db.WithContext(ctx).Raw(
		`SELECT MIN(step_number) FROM approvals
		 WHERE expense_id = ? AND required = ? AND status = ?`,
		expenseID, true, domain.StatusPending,
	).Scan(&step).Error
	if err != nil {
		return 0, err
	}
	if !step.Valid {
		return 0, nil
	}
	return int(step.Int64), nil
}

func (r *repo) MarkApprovalApproved(ctx context.Context, db *gorm.DB, approvalID snowflake.ID, at time.Time, comments string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE approvals SET status = ?, approved_at = ?, comments = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusApproved, at, comments, approvalID, domain.StatusPending,
	).Error
}

func (r *repo) CountPendingRequired(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM approvals
		 WHERE expense_id = ? AND required = ? AND status = ?`,
		expenseID, true, domain.StatusPending,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) CompleteExpense(ctx context.Context, db *gorm.DB, expenseID snowflake.ID, at time.Time) (bool, error) {
	// Compare-and-set keeps the pending -> approved transition single-shot
	// even without a row lock.
	result := db.WithContext(ctx).Exec(
		`UPDATE expenses SET status = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusApproved, at, expenseID, domain.StatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ListApprovalViews(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) ([]domain.ApprovalView, error) {
	var views []domain.ApprovalView
	err := db.WithContext(ctx).Raw(
		`SELECT a.step_number, u.name AS approver_name, h.level_name AS approver_level_name,
		        a.status, a.approved_at, a.comments, a.required
		 FROM approvals a
		 JOIN users u ON u.id = a.approver_id
		 JOIN hierarchy_levels h ON h.id = a.approver_level_id
		 WHERE a.expense_id = ?
		 ORDER BY a.step_number ASC`,
		expenseID,
	).Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

// supportsRowLocks reports whether the dialect honors SELECT ... FOR UPDATE.
// SQLite does not, and its single-writer model makes the lock unnecessary.
func supportsRowLocks(db *gorm.DB) bool {
	return db.Dialector.Name() != "sqlite"
}
