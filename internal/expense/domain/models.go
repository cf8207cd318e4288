package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Expense is a submitted spend request. Amount is in minor units (cents).
type Expense struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID      `gorm:"not null;index" json:"company_id"`
	UserID      snowflake.ID      `gorm:"not null;index" json:"user_id"`
	PolicyID    snowflake.ID      `gorm:"not null;index" json:"policy_id"`
	Amount      int64             `gorm:"not null" json:"amount"`
	Description string            `json:"description,omitempty"`
	Status      string            `gorm:"not null;default:pending;index" json:"status"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	SubmittedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"submitted_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Approval is one resolved step of an expense's approval chain. Each row
// transitions pending -> approved exactly once.
type Approval struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	ExpenseID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_approvals_expense_step_approver" json:"expense_id"`
	StepNumber      int          `gorm:"not null;uniqueIndex:ux_approvals_expense_step_approver" json:"step_number"`
	ApproverID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_approvals_expense_step_approver" json:"approver_id"`
	ApproverLevelID snowflake.ID `gorm:"not null" json:"approver_level_id"`
	Required        bool         `gorm:"not null;default:true" json:"required"`
	Status          string       `gorm:"not null;default:pending;index" json:"status"`
	ApprovedAt      *time.Time   `json:"approved_at,omitempty"`
	Comments        string       `json:"comments,omitempty"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
