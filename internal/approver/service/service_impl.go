package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/expenso/internal/approver/domain"
	orgdomain "github.com/smallbiznis/expenso/internal/org/domain"
	policydomain "github.com/smallbiznis/expenso/internal/policy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:  p.Log.Named("approver.service"),
		repo: p.Repo,
	}
}

// Resolve picks the concrete approver for one step template. Scope
// "submitter" searches the submitter's own team; every other scope falls
// back to a company-wide search until dedicated scope teams exist.
func (s *Service) Resolve(ctx context.Context, db *gorm.DB, submitter *orgdomain.User, step policydomain.ApprovalStep) (*domain.Candidate, error) {
	q := domain.Query{
		CompanyID:     submitter.CompanyID,
		RequiredLevel: step.RequiredLevel,
		ExcludeUserID: submitter.ID,
	}
	if step.TeamScope == policydomain.ScopeSubmitter {
		q.TeamID = submitter.TeamID
	}

	candidate, err := s.repo.FindQualifiedApprover(ctx, db, q)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		s.log.Warn("no qualified approver",
			zap.Int64("company_id", int64(submitter.CompanyID)),
			zap.Int64("team_id", int64(q.TeamID)),
			zap.Int("required_level", step.RequiredLevel),
			zap.Int("step_order", step.StepOrder),
		)
		return nil, fmt.Errorf("%w: step %d requires level %d", domain.ErrNoQualifiedApprover, step.StepOrder, step.RequiredLevel)
	}
	return candidate, nil
}
