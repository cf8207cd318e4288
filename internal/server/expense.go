package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	expensedomain "github.com/smallbiznis/expenso/internal/expense/domain"
)

type createExpenseRequest struct {
	UserID      string `json:"user_id"`
	PolicyID    string `json:"policy_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.expenseSvc.Create(c.Request.Context(), expensedomain.CreateExpenseRequest{
		UserID:      strings.TrimSpace(req.UserID),
		PolicyID:    strings.TrimSpace(req.PolicyID),
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type approveExpenseRequest struct {
	ExpenseID  string `json:"expense_id"`
	ApproverID string `json:"approver_id"`
	Comments   string `json:"comments"`
}

func (s *Server) ApproveExpense(c *gin.Context) {
	var req approveExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.expenseSvc.Approve(c.Request.Context(), expensedomain.ApproveExpenseRequest{
		ExpenseID:  strings.TrimSpace(req.ExpenseID),
		ApproverID: strings.TrimSpace(req.ApproverID),
		Comments:   req.Comments,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetExpenseStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.expenseSvc.GetStatus(c.Request.Context(), expensedomain.GetExpenseStatusRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
