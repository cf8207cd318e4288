package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Policy binds an expense category and amount range to an approval chain.
// Amounts are in minor units (cents).
type Policy struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_policies_company_category_min" json:"company_id"`
	Category    string       `gorm:"not null;uniqueIndex:ux_policies_company_category_min" json:"category"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `json:"description,omitempty"`
	MinAmount   int64        `gorm:"not null;default:0;uniqueIndex:ux_policies_company_category_min" json:"min_amount"`
	MaxAmount   int64        `gorm:"not null" json:"max_amount"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// Team scopes an approval step may search within.
const (
	ScopeSubmitter   = "submitter"
	ScopeFinance     = "finance"
	ScopeHR          = "hr"
	ScopeLegal       = "legal"
	ScopeCompanyWide = "company_wide"
)

// ApprovalStep is one template entry of a policy's ordered approval chain.
type ApprovalStep struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	PolicyID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_approval_steps_policy_order" json:"policy_id"`
	StepOrder     int          `gorm:"not null;uniqueIndex:ux_approval_steps_policy_order;check:step_order > 0" json:"step_order"`
	RequiredLevel int          `gorm:"not null;check:required_level BETWEEN 1 AND 10" json:"required_level"`
	TeamScope     string       `gorm:"not null;default:submitter" json:"team_scope"`
	IsRequired    bool         `gorm:"not null;default:true" json:"is_required"`
	Description   string       `json:"description,omitempty"`
}
