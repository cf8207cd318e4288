package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	approverdomain "github.com/smallbiznis/expenso/internal/approver/domain"
	"github.com/smallbiznis/expenso/internal/clock"
	"github.com/smallbiznis/expenso/internal/config"
	"github.com/smallbiznis/expenso/internal/expense/domain"
	obsmetrics "github.com/smallbiznis/expenso/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/expenso/internal/org/domain"
	policydomain "github.com/smallbiznis/expenso/internal/policy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	OrgRepo  orgdomain.Repository
	Policy   policydomain.Repository
	Resolver approverdomain.Service
	Workflow *config.WorkflowConfigHolder
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	orgRepo  orgdomain.Repository
	policy   policydomain.Repository
	resolver approverdomain.Service
	workflow *config.WorkflowConfigHolder
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("expense.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		orgRepo:  p.OrgRepo,
		policy:   p.Policy,
		resolver: p.Resolver,
		workflow: p.Workflow,
		metrics:  p.Metrics,
	}
}

// Create validates the submission, persists the expense and resolves the
// full approval chain. Everything runs in one transaction: an expense
// either gets its complete chain or does not exist at all.
func (s *Service) Create(ctx context.Context, req domain.CreateExpenseRequest) (domain.CreateExpenseResponse, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return domain.CreateExpenseResponse{}, err
	}
	policyID, err := parseID(req.PolicyID)
	if err != nil {
		return domain.CreateExpenseResponse{}, err
	}
	// Amounts must be strictly positive regardless of policy bounds; a
	// policy with min_amount = 0 still never accepts a zero amount (the
	// schema enforces amount > 0).
	if req.Amount <= 0 {
		return domain.CreateExpenseResponse{}, domain.ErrInvalidAmount
	}

	var resp domain.CreateExpenseResponse
	var category string

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.orgRepo.FindUserByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil || !user.Active {
			return orgdomain.ErrUserNotFound
		}

		policy, err := s.policy.FindPolicyByID(ctx, tx, policyID)
		if err != nil {
			return err
		}
		if policy == nil || !policy.Active {
			return policydomain.ErrPolicyNotFound
		}
		// Bounds are inclusive on both ends.
		if req.Amount < policy.MinAmount || req.Amount > policy.MaxAmount {
			return domain.ErrAmountOutOfRange
		}
		if user.CompanyID != policy.CompanyID {
			return domain.ErrCompanyMismatch
		}
		category = policy.Category

		steps, err := s.policy.ListStepsByPolicy(ctx, tx, policy.ID)
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			return policydomain.ErrNoApprovalSteps
		}
		if max := s.workflow.Get().MaxApprovalSteps; len(steps) > max {
			return domain.ErrTooManySteps
		}

		now := s.clock.Now()
		expense := &domain.Expense{
			ID:          s.genID.Generate(),
			CompanyID:   user.CompanyID,
			UserID:      user.ID,
			PolicyID:    policy.ID,
			Amount:      req.Amount,
			Description: strings.TrimSpace(req.Description),
			Status:      domain.StatusPending,
			Metadata:    datatypes.JSONMap{},
			SubmittedAt: now,
		}
		if err := s.repo.InsertExpense(ctx, tx, expense); err != nil {
			return err
		}

		required := make([]domain.RequiredApproval, 0, len(steps))
		for _, step := range steps {
			candidate, err := s.resolver.Resolve(ctx, tx, user, step)
			if err != nil {
				if s.metrics != nil {
					s.metrics.RecordResolverFailure(ctx, step.TeamScope)
				}
				return err
			}

			approval := &domain.Approval{
				ID:              s.genID.Generate(),
				ExpenseID:       expense.ID,
				StepNumber:      step.StepOrder,
				ApproverID:      candidate.UserID,
				ApproverLevelID: candidate.HierarchyLevelID,
				Required:        step.IsRequired,
				Status:          domain.StatusPending,
				CreatedAt:       now,
			}
			if err := s.repo.InsertApproval(ctx, tx, approval); err != nil {
				return err
			}
			required = append(required, domain.RequiredApproval{
				Step:              step.StepOrder,
				ApproverName:      candidate.Name,
				ApproverLevelName: candidate.LevelName,
			})
		}

		resp = domain.CreateExpenseResponse{
			ExpenseID:         expense.ID.String(),
			Status:            expense.Status,
			Amount:            expense.Amount,
			ApprovalsRequired: required,
		}
		return nil
	})
	if err != nil {
		return domain.CreateExpenseResponse{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordExpenseCreated(ctx, category)
	}
	s.log.Info("expense created",
		zap.String("expense_id", resp.ExpenseID),
		zap.Int64("amount", resp.Amount),
		zap.Int("approval_steps", len(resp.ApprovalsRequired)),
	)

	return resp, nil
}

// Approve records one approval and, when the last required step lands,
// completes the expense. The whole read-check-write sequence holds a row
// lock on the expense so two final approvers cannot both complete it.
func (s *Service) Approve(ctx context.Context, req domain.ApproveExpenseRequest) (domain.ApproveExpenseResponse, error) {
	expenseID, err := parseID(req.ExpenseID)
	if err != nil {
		return domain.ApproveExpenseResponse{}, err
	}
	approverID, err := parseID(req.ApproverID)
	if err != nil {
		return domain.ApproveExpenseResponse{}, err
	}

	var resp domain.ApproveExpenseResponse
	completed := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expense, err := s.repo.LockExpenseByID(ctx, tx, expenseID)
		if err != nil {
			return err
		}
		if expense == nil {
			return domain.ErrExpenseNotFound
		}

		approver, err := s.orgRepo.FindUserByID(ctx, tx, approverID)
		if err != nil {
			return err
		}
		if approver == nil || !approver.Active {
			return orgdomain.ErrUserNotFound
		}
		if approver.CompanyID != expense.CompanyID {
			return domain.ErrCompanyMismatch
		}
		// Resolution never assigns the submitter, but the invariant is
		// cheap to state here too.
		if approver.ID == expense.UserID {
			return domain.ErrSelfApproval
		}

		approval, err := s.repo.FindPendingApproval(ctx, tx, expense.ID, approver.ID)
		if err != nil {
			return err
		}
		if approval == nil {
			return domain.ErrNoPendingApproval
		}

		if s.workflow.Get().StrictOrdering {
			minRequired, err := s.repo.MinPendingRequiredStep(ctx, tx, expense.ID)
			if err != nil {
				return err
			}
			// A step is actionable once every required step before it is
			// approved. Pending optional steps never block later approvers.
			if minRequired != 0 && approval.StepNumber > minRequired {
				return domain.ErrApprovalOutOfOrder
			}
		}

		now := s.clock.Now()
		if err := s.repo.MarkApprovalApproved(ctx, tx, approval.ID, now, strings.TrimSpace(req.Comments)); err != nil {
			return err
		}

		pending, err := s.repo.CountPendingRequired(ctx, tx, expense.ID)
		if err != nil {
			return err
		}

		status := expense.Status
		if pending == 0 && expense.Status == domain.StatusPending {
			ok, err := s.repo.CompleteExpense(ctx, tx, expense.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrAlreadyCompleted
			}
			status = domain.StatusApproved
			completed = true
		}

		resp = domain.ApproveExpenseResponse{
			ExpenseID:        expense.ID.String(),
			StepApproved:     approval.StepNumber,
			ExpenseStatus:    status,
			PendingApprovals: pending,
		}
		return nil
	})
	if err != nil {
		return domain.ApproveExpenseResponse{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordApprovalRecorded(ctx)
		if completed {
			s.metrics.RecordExpenseCompleted(ctx)
		}
	}
	s.log.Info("approval recorded",
		zap.String("expense_id", resp.ExpenseID),
		zap.Int("step", resp.StepApproved),
		zap.String("expense_status", resp.ExpenseStatus),
		zap.Int64("pending_required", resp.PendingApprovals),
	)

	return resp, nil
}

// GetStatus assembles the expense read model. Pure read, no locks.
func (s *Service) GetStatus(ctx context.Context, req domain.GetExpenseStatusRequest) (domain.ExpenseStatusResponse, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.ExpenseStatusResponse{}, err
	}

	detail, err := s.repo.FindExpenseDetail(ctx, s.db, id)
	if err != nil {
		return domain.ExpenseStatusResponse{}, err
	}
	if detail == nil {
		return domain.ExpenseStatusResponse{}, domain.ErrExpenseNotFound
	}

	views, err := s.repo.ListApprovalViews(ctx, s.db, id)
	if err != nil {
		return domain.ExpenseStatusResponse{}, err
	}

	approvals := make([]domain.ApprovalStatus, 0, len(views))
	for _, v := range views {
		approvals = append(approvals, domain.ApprovalStatus{
			StepNumber:        v.StepNumber,
			ApproverName:      v.ApproverName,
			ApproverLevelName: v.ApproverLevelName,
			Status:            v.Status,
			ApprovedAt:        v.ApprovedAt,
			Comments:          v.Comments,
			Required:          v.Required,
		})
	}

	return domain.ExpenseStatusResponse{
		ID:          detail.ID.String(),
		Amount:      detail.Amount,
		Description: detail.Description,
		Status:      detail.Status,
		SubmittedAt: detail.SubmittedAt,
		CompletedAt: detail.CompletedAt,
		UserName:    detail.UserName,
		PolicyName:  detail.PolicyName,
		Approvals:   approvals,
	}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
