// Billing HTTP handlers.
//
// This file exposes the read side of billing:
//   - GET /billing/plans         (static plan catalog)
//   - GET /billing/subscription  (the account's current plan)
//
// Payment collection happens out of band; these endpoints only report plan
// state so the dashboard can gate tiered features.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapback/snapback-backend/internal/services"
)

// BillingHandlers groups the /billing endpoints.
type BillingHandlers struct {
	billing services.BillingProvider
}

// NewBillingHandlers binds the billing endpoints to a provider.
func NewBillingHandlers(b services.BillingProvider) *BillingHandlers {
	return &BillingHandlers{billing: b}
}

// ListPlans godoc
// @ID          listPlans
// @Summary     Plan catalog
// @Tags        Billing
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.Envelope
// @Router      /billing/plans [get]
func (h *BillingHandlers) ListPlans(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"plans": h.billing.Plans(c.Request.Context())})
}

// GetSubscription godoc
// @ID          getSubscription
// @Summary     Current subscription
// @Tags        Billing
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not found"
// @Router      /billing/subscription [get]
func (h *BillingHandlers) GetSubscription(c *gin.Context) {
	accountID := mustAccountID(c)
	if accountID == "" {
		return
	}
	sub, err := h.billing.Subscription(c.Request.Context(), accountID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sub)
}
