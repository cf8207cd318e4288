package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/expenso/internal/org/domain"
	policydomain "github.com/smallbiznis/expenso/internal/policy/domain"
	"gorm.io/gorm"
)

// Candidate is a user qualified to take an approval step, annotated with
// the hierarchy data the workflow needs for display.
type Candidate struct {
	UserID           snowflake.ID `gorm:"column:id" json:"user_id"`
	Name             string       `json:"name"`
	HierarchyLevelID snowflake.ID `json:"hierarchy_level_id"`
	LevelNumber      int          `json:"level_number"`
	LevelName        string       `json:"level_name"`
}

// Query narrows the candidate search for one approval step.
type Query struct {
	CompanyID     snowflake.ID
	TeamID        snowflake.ID // zero means company-wide
	RequiredLevel int
	ExcludeUserID snowflake.ID
}

type Repository interface {
	FindQualifiedApprover(ctx context.Context, db *gorm.DB, q Query) (*Candidate, error)
}

// Service resolves an approval step template to a concrete approver.
//
// The chosen candidate is the ACTIVE user whose level_number is <= the
// step's required level, excluding the submitter, preferring the
// numerically largest qualifying level_number (the least-senior person
// who still qualifies).
type Service interface {
	Resolve(ctx context.Context, db *gorm.DB, submitter *orgdomain.User, step policydomain.ApprovalStep) (*Candidate, error)
}

var ErrNoQualifiedApprover = errors.New("no_qualified_approver")
