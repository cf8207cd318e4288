package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	approverrepository "github.com/smallbiznis/expenso/internal/approver/repository"
	approverservice "github.com/smallbiznis/expenso/internal/approver/service"
	"github.com/smallbiznis/expenso/internal/clock"
	appconfig "github.com/smallbiznis/expenso/internal/config"
	expensedomain "github.com/smallbiznis/expenso/internal/expense/domain"
	expenserepository "github.com/smallbiznis/expenso/internal/expense/repository"
	expenseservice "github.com/smallbiznis/expenso/internal/expense/service"
	"github.com/smallbiznis/expenso/internal/observability"
	obsmetrics "github.com/smallbiznis/expenso/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/expenso/internal/org/domain"
	orgrepository "github.com/smallbiznis/expenso/internal/org/repository"
	policydomain "github.com/smallbiznis/expenso/internal/policy/domain"
	policyrepository "github.com/smallbiznis/expenso/internal/policy/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	dbSeq           atomic.Int64
	httpMetricsOnce sync.Once
	httpMetrics     *obsmetrics.HTTPMetrics
)

func sharedHTTPMetrics() *obsmetrics.HTTPMetrics {
	httpMetricsOnce.Do(func() {
		httpMetrics = obsmetrics.NewHTTPMetrics()
	})
	return httpMetrics
}

type testServer struct {
	srv       *httptest.Server
	db        *gorm.DB
	node      *snowflake.Node
	submitter orgdomain.User
	manager   orgdomain.User
	sem       orgdomain.User
	policy    policydomain.Policy
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
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

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	company := orgdomain.Company{ID: node.Generate(), Name: "TechCorp Solutions"}
	require.NoError(t, db.Create(&company).Error)
	team := orgdomain.Team{ID: node.Generate(), CompanyID: company.ID, Name: "Technology"}
	require.NoError(t, db.Create(&team).Error)

	mkUser := func(levelNumber int, levelName, name string) orgdomain.User {
		level := orgdomain.HierarchyLevel{
			ID: node.Generate(), CompanyID: company.ID, TeamID: team.ID,
			LevelNumber: levelNumber, LevelName: levelName,
		}
		require.NoError(t, db.Create(&level).Error)
		user := orgdomain.User{
			ID: node.Generate(), CompanyID: company.ID, TeamID: team.ID,
			Email: fmt.Sprintf("%s@techcorp.test", levelName), Name: name,
			HierarchyLevelID: level.ID, Active: true,
		}
		require.NoError(t, db.Create(&user).Error)
		return user
	}
	sem := mkUser(5, "SEM", "Eve Davis")
	manager := mkUser(6, "Manager", "Frank Miller")
	submitter := mkUser(7, "SDE3", "Grace Taylor")

	policy := policydomain.Policy{
		ID: node.Generate(), CompanyID: company.ID, Category: "travel",
		Name: "Business Travel", MinAmount: 0, MaxAmount: 99_999_999_999, Active: true,
	}
	require.NoError(t, db.Create(&policy).Error)
	for i, level := range []int{6, 5} {
		require.NoError(t, db.Create(&policydomain.ApprovalStep{
			ID: node.Generate(), PolicyID: policy.ID, StepOrder: i + 1, RequiredLevel: level,
			TeamScope: policydomain.ScopeSubmitter, IsRequired: true,
		}).Error)
	}

	svc := expenseservice.New(expenseservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:    expenserepository.Provide(),
		OrgRepo: orgrepository.Provide(),
		Policy:  policyrepository.Provide(),
		Resolver: approverservice.New(approverservice.Params{
			Log:  zap.NewNop(),
			Repo: approverrepository.Provide(),
		}),
		Workflow: appconfig.NewStaticWorkflowConfigHolder(appconfig.DefaultWorkflowConfig()),
	})

	engine := NewEngine(observability.Config{LogLevel: "error", Environment: "test"}, sharedHTTPMetrics())
	s := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        appconfig.Config{AppName: "expenso"},
		ExpenseSvc: svc,
	})
	s.RegisterAPIRoutes()

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	return &testServer{
		srv:       srv,
		db:        db,
		node:      node,
		submitter: submitter,
		manager:   manager,
		sem:       sem,
		policy:    policy,
	}
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (ts *testServer) createExpense(t *testing.T, amount int64) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, ts.srv.URL+"/api/expenses", map[string]any{
		"user_id":     ts.submitter.ID.String(),
		"policy_id":   ts.policy.ID.String(),
		"amount":      amount,
		"description": "conference travel",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var payload struct {
		Data struct {
			ExpenseID string `json:"expense_id"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NotEmpty(t, payload.Data.ExpenseID)
	require.Equal(t, expensedomain.StatusPending, payload.Data.Status)
	return payload.Data.ExpenseID
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExpenseLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	expenseID := ts.createExpense(t, 120_000)

	resp, body := doJSON(t, http.MethodPost, ts.srv.URL+"/api/expenses/approve", map[string]any{
		"expense_id":  expenseID,
		"approver_id": ts.manager.ID.String(),
		"comments":    "approved",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var approvePayload struct {
		Data struct {
			StepApproved     int    `json:"step_approved"`
			ExpenseStatus    string `json:"expense_status"`
			PendingApprovals int64  `json:"pending_approvals"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &approvePayload))
	assert.Equal(t, 1, approvePayload.Data.StepApproved)
	assert.Equal(t, expensedomain.StatusPending, approvePayload.Data.ExpenseStatus)
	assert.Equal(t, int64(1), approvePayload.Data.PendingApprovals)

	resp, body = doJSON(t, http.MethodPost, ts.srv.URL+"/api/expenses/approve", map[string]any{
		"expense_id":  expenseID,
		"approver_id": ts.sem.ID.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &approvePayload))
	assert.Equal(t, expensedomain.StatusApproved, approvePayload.Data.ExpenseStatus)

	resp, body = doJSON(t, http.MethodGet, ts.srv.URL+"/api/expenses/"+expenseID+"/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var statusPayload struct {
		Data struct {
			Status    string `json:"status"`
			Approvals []struct {
				StepNumber int    `json:"step_number"`
				Status     string `json:"status"`
			} `json:"approvals"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &statusPayload))
	assert.Equal(t, expensedomain.StatusApproved, statusPayload.Data.Status)
	require.Len(t, statusPayload.Data.Approvals, 2)
	for _, approval := range statusPayload.Data.Approvals {
		assert.Equal(t, expensedomain.StatusApproved, approval.Status)
	}
}

func TestErrorMappingOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	expenseID := ts.createExpense(t, 80_000)

	t.Run("malformed body is a 400", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/expenses", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("out of range amount is a 400", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.srv.URL+"/api/expenses", map[string]any{
			"user_id":   ts.submitter.ID.String(),
			"policy_id": ts.policy.ID.String(),
			"amount":    -5,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

		var payload struct {
			Error struct {
				Type   string `json:"type"`
				Errors []struct {
					Code string `json:"code"`
				} `json:"errors"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "validation_error", payload.Error.Type)
		require.NotEmpty(t, payload.Error.Errors)
		assert.Equal(t, "invalid_amount", payload.Error.Errors[0].Code)
	})

	t.Run("unknown expense is a 404", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, ts.srv.URL+"/api/expenses/"+ts.node.Generate().String()+"/status", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("out of order approval is a 409", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, ts.srv.URL+"/api/expenses/approve", map[string]any{
			"expense_id":  expenseID,
			"approver_id": ts.sem.ID.String(),
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

		var payload struct {
			Error struct {
				Type string `json:"type"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "conflict", payload.Error.Type)
	})

	t.Run("self approval is a 403", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, ts.srv.URL+"/api/expenses/approve", map[string]any{
			"expense_id":  expenseID,
			"approver_id": ts.submitter.ID.String(),
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unassigned approver is a 403", func(t *testing.T) {
		outsider := orgdomain.User{
			ID: ts.node.Generate(), CompanyID: ts.submitter.CompanyID, TeamID: ts.submitter.TeamID,
			Email: "extra@techcorp.test", Name: "Extra", HierarchyLevelID: ts.manager.HierarchyLevelID, Active: true,
		}
		require.NoError(t, ts.db.Create(&outsider).Error)

		resp, _ := doJSON(t, http.MethodPost, ts.srv.URL+"/api/expenses/approve", map[string]any{
			"expense_id":  expenseID,
			"approver_id": outsider.ID.String(),
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
