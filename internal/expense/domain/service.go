package domain

import (
	"context"
	"errors"
	"time"
)

type CreateExpenseRequest struct {
	UserID      string
	PolicyID    string
	Amount      int64
	Description string
}

// RequiredApproval names one resolved step for caller display.
type RequiredApproval struct {
	Step              int    `json:"step"`
	ApproverName      string `json:"approver_name"`
	ApproverLevelName string `json:"approver_level_name"`
}

type CreateExpenseResponse struct {
	ExpenseID         string             `json:"expense_id"`
	Status            string             `json:"status"`
	Amount            int64              `json:"amount"`
	ApprovalsRequired []RequiredApproval `json:"approvals_required"`
}

type ApproveExpenseRequest struct {
	ExpenseID  string
	ApproverID string
	Comments   string
}

type ApproveExpenseResponse struct {
	ExpenseID        string `json:"expense_id"`
	StepApproved     int    `json:"step_approved"`
	ExpenseStatus    string `json:"expense_status"`
	PendingApprovals int64  `json:"pending_approvals"`
}

type GetExpenseStatusRequest struct {
	ID string
}

// ApprovalStatus is one approval row of the status read model.
type ApprovalStatus struct {
	StepNumber        int        `json:"step_number"`
	ApproverName      string     `json:"approver_name"`
	ApproverLevelName string     `json:"approver_level_name"`
	Status            string     `json:"status"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	Comments          string     `json:"comments,omitempty"`
	Required          bool       `json:"required"`
}

type ExpenseStatusResponse struct {
	ID          string           `json:"id"`
	Amount      int64            `json:"amount"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	UserName    string           `json:"user_name"`
	PolicyName  string           `json:"policy_name"`
	Approvals   []ApprovalStatus `json:"approvals"`
}

type Service interface {
	Create(context.Context, CreateExpenseRequest) (CreateExpenseResponse, error)
	Approve(context.Context, ApproveExpenseRequest) (ApproveExpenseResponse, error)
	GetStatus(context.Context, GetExpenseStatusRequest) (ExpenseStatusResponse, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrAmountOutOfRange   = errors.New("amount_out_of_range")
	ErrTooManySteps       = errors.New("too_many_approval_steps")
	ErrExpenseNotFound    = errors.New("expense_not_found")
	ErrCompanyMismatch    = errors.New("company_mismatch")
	ErrSelfApproval       = errors.New("self_approval")
	ErrNoPendingApproval  = errors.New("no_pending_approval")
	ErrApprovalOutOfOrder = errors.New("approval_out_of_order")
	ErrAlreadyCompleted   = errors.New("expense_already_completed")
)
