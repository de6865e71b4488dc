package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// ClaimLineRequest is one line of a claim submission
type ClaimLineRequest struct {
	Category    string  `json:"category"`
	Vendor      string  `json:"vendor"`
	ExpenseDate string  `json:"expense_date"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	ReceiptURL  string  `json:"receipt_url"`
}

// SubmitClaimRequest is the body of POST /api/claims
type SubmitClaimRequest struct {
	CurrencyCode string             `json:"currency_code" binding:"required"`
	Description  string             `json:"description"`
	Lines        []ClaimLineRequest `json:"lines"`
}

// DecisionRequest is the body of the approve and reject endpoints
type DecisionRequest struct {
	Comment string `json:"comment"`
}

// SubmitClaim handles POST /api/claims
func (h *Handlers) SubmitClaim(c *gin.Context) {
	var req SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	lines := make([]service.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = service.LineInput{
			Category:    l.Category,
			Vendor:      l.Vendor,
			ExpenseDate: l.ExpenseDate,
			Amount:      l.Amount,
			Description: l.Description,
			ReceiptURL:  l.ReceiptURL,
		}
	}

	claim, err := h.services.Claims.Submit(c.Request.Context(), service.SubmitInput{
		OwnerID:      currentUser(c).ID,
		CurrencyCode: req.CurrencyCode,
		Description:  req.Description,
		Lines:        lines,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, claim)
}

// ListClaims handles GET /api/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	claims, err := h.services.Claims.ListClaims(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, claims)
}

// PendingClaims handles GET /api/claims/pending
func (h *Handlers) PendingClaims(c *gin.Context) {
	claims, err := h.services.Approvals.PendingFor(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, claims)
}

// UnroutedClaims handles GET /api/claims/unrouted
func (h *Handlers) UnroutedClaims(c *gin.Context) {
	claims, err := h.services.Claims.ListUnrouted(c.Request.Context(), currentUser(c).CompanyID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, claims)
}

// ExportClaims handles GET /api/claims/export
func (h *Handlers) ExportClaims(c *gin.Context) {
	export, err := h.services.Exports.ExportClaims(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}

	detail, err := h.services.Claims.GetClaim(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, detail)
}

// ApproveClaim handles POST /api/claims/:id/approve
func (h *Handlers) ApproveClaim(c *gin.Context) {
	h.decide(c, entity.OutcomeApproved)
}

// RejectClaim handles POST /api/claims/:id/reject
func (h *Handlers) RejectClaim(c *gin.Context) {
	h.decide(c, entity.OutcomeRejected)
}

func (h *Handlers) decide(c *gin.Context, outcome string) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}

	// The body is optional for approvals
	var req DecisionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.services.Approvals.RecordDecision(c.Request.Context(), service.DecisionInput{
		ClaimID:    id,
		ApproverID: currentUser(c).ID,
		Outcome:    outcome,
		Comment:    req.Comment,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}
