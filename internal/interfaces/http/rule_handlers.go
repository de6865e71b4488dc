package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// CreateRuleRequest is the body of POST /api/rules
type CreateRuleRequest struct {
	Name                string                    `json:"name" binding:"required"`
	Description         string                    `json:"description"`
	Percentage          *int                      `json:"approval_percentage"`
	ThresholdAmount     float64                   `json:"threshold_amount"`
	IsActive            *bool                     `json:"is_active"`
	RequiredApproverIDs []int64                   `json:"required_approver_ids"`
	OrdinaryApprovers   []entity.OrdinaryApprover `json:"ordinary_approvers"`
}

// CreateRule handles POST /api/rules
func (h *Handlers) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	rule, err := h.services.Rules.CreateRule(c.Request.Context(), service.CreateRuleInput{
		CompanyID:           currentUser(c).CompanyID,
		Name:                req.Name,
		Description:         req.Description,
		Percentage:          req.Percentage,
		ThresholdAmount:     req.ThresholdAmount,
		IsActive:            req.IsActive,
		RequiredApproverIDs: req.RequiredApproverIDs,
		OrdinaryApprovers:   req.OrdinaryApprovers,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, rule)
}

// ListRules handles GET /api/rules
func (h *Handlers) ListRules(c *gin.Context) {
	rules, err := h.services.Rules.ListRules(c.Request.Context(), currentUser(c).CompanyID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, rules)
}

// GetRule handles GET /api/rules/:id
func (h *Handlers) GetRule(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}

	rule, err := h.services.Rules.GetRule(c.Request.Context(), id)
	if err == nil && rule.CompanyID != currentUser(c).CompanyID {
		err = fmt.Errorf("%w: rule %d", entity.ErrNotFound, id)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, rule)
}
