package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// CreateCompanyRequest is the body of POST /api/companies
type CreateCompanyRequest struct {
	Name         string `json:"name" binding:"required"`
	CurrencyCode string `json:"currency_code" binding:"required"`
	AdminName    string `json:"admin_name" binding:"required"`
	AdminEmail   string `json:"admin_email" binding:"required"`
}

// CreateCompanyResponse returns the company and its first admin
type CreateCompanyResponse struct {
	Company *entity.Company `json:"company"`
	Admin   *entity.User    `json:"admin"`
}

// CreateUserRequest is the body of POST /api/users
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}

// AssignRuleRequest is the body of PUT /api/users/:id/rule
type AssignRuleRequest struct {
	RuleID int64 `json:"rule_id" binding:"required"`
}

// CreateCompany handles POST /api/companies
func (h *Handlers) CreateCompany(c *gin.Context) {
	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	company, admin, err := h.services.Directory.CreateCompany(c.Request.Context(), service.CreateCompanyInput{
		Name:         req.Name,
		CurrencyCode: req.CurrencyCode,
		AdminName:    req.AdminName,
		AdminEmail:   req.AdminEmail,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, CreateCompanyResponse{Company: company, Admin: admin})
}

// Me handles GET /api/me
func (h *Handlers) Me(c *gin.Context) {
	ok(c, http.StatusOK, currentUser(c))
}

// CreateUser handles POST /api/users. The user joins the caller's company.
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.services.Directory.CreateUser(c.Request.Context(), service.CreateUserInput{
		CompanyID: currentUser(c).CompanyID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, user)
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.services.Directory.ListUsers(c.Request.Context(), currentUser(c).CompanyID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, users)
}

// AssignRule handles PUT /api/users/:id/rule
func (h *Handlers) AssignRule(c *gin.Context) {
	userID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req AssignRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	target, err := h.services.Directory.GetUser(c.Request.Context(), userID)
	if err == nil && target.CompanyID != currentUser(c).CompanyID {
		err = fmt.Errorf("%w: user %d", entity.ErrNotFound, userID)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	user, err := h.services.Directory.AssignRule(c.Request.Context(), userID, req.RuleID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}
