package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ExpenseDetail is the expense joined with submitter and policy names.
type ExpenseDetail struct {
	Expense
	UserName   string `json:"user_name"`
	PolicyName string `json:"policy_name"`
}

// ApprovalView is an approval joined with approver and level names,
// ordered by step number.
type ApprovalView struct {
	StepNumber        int        `json:"step_number"`
	ApproverName      string     `json:"approver_name"`
	ApproverLevelName string     `json:"approver_level_name"`
	Status            string     `json:"status"`
	ApprovedAt        *time.Time `json:"approved_at"`
	Comments          string     `json:"comments"`
	Required          bool       `json:"required"`
}

type Repository interface {
	InsertExpense(ctx context.Context, db *gorm.DB, expense *Expense) error
	InsertApproval(ctx context.Context, db *gorm.DB, approval *Approval) error

	FindExpenseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Expense, error)
	// LockExpenseByID loads the expense under a row lock where the dialect
	// supports one, serializing concurrent approvals of the same expense.
	LockExpenseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Expense, error)
	FindExpenseDetail(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ExpenseDetail, error)

	FindPendingApproval(ctx context.Context, db *gorm.DB, expenseID, approverID snowflake.ID) (*Approval, error)
	// MinPendingRequiredStep returns the lowest step number still pending
	// among required approvals, or zero when none remain. Optional steps
	// never gate ordering.
	MinPendingRequiredStep(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) (int, error)
	MarkApprovalApproved(ctx context.Context, db *gorm.DB, approvalID snowflake.ID, at time.Time, comments string) error
	CountPendingRequired(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) (int64, error)
	// CompleteExpense transitions pending -> approved and stamps
	// completed_at. Returns false when another writer got there first.
	CompleteExpense(ctx context.Context, db *gorm.DB, expenseID snowflake.ID, at time.Time) (bool, error)

	ListApprovalViews(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) ([]ApprovalView, error)
}
