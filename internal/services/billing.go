// Package services – billing
//
// Payment processing is delegated to an external provider and is not part of
// this backend. What the dashboard still needs is read access to the plan
// catalog and the account's current subscription, so those are served from a
// BillingProvider interface with a local, catalog-backed implementation.
package services

import (
	"context"

	"github.com/snapback/snapback-backend/internal/domain"
)

// Plan describes one subscription tier and the capability limits it buys.
type Plan struct {
	Tier              string `json:"tier"`
	Name              string `json:"name"`
	PriceUSDMonthly   int    `json:"priceUsdMonthly"`
	MaxProjects       int    `json:"maxProjects"`
	SessionReplay     bool   `json:"sessionReplay"`
	RemovableBranding bool   `json:"removableBranding"`
}

// Subscription is the account's current billing state.
type Subscription struct {
	Tier string `json:"tier"`
	Plan Plan   `json:"plan"`
}

// BillingProvider exposes the read-side of billing. A payment-processor
// integration would implement the same interface.
type BillingProvider interface {
	Plans(ctx context.Context) []Plan
	Subscription(ctx context.Context, accountID string) (*Subscription, error)
}

// LocalBilling serves the static plan catalog and derives the subscription
// from the account row's tier.
type LocalBilling struct {
	Accounts *AccountService
}

var planCatalog = []Plan{
	{Tier: domain.TierFree, Name: "Free", PriceUSDMonthly: 0, MaxProjects: 1, SessionReplay: false, RemovableBranding: false},
	{Tier: domain.TierPro, Name: "Pro", PriceUSDMonthly: 19, MaxProjects: 10, SessionReplay: true, RemovableBranding: false},
	{Tier: domain.TierBusiness, Name: "Business", PriceUSDMonthly: 79, MaxProjects: 100, SessionReplay: true, RemovableBranding: true},
}

// Plans returns the plan catalog in ascending price order.
func (b *LocalBilling) Plans(context.Context) []Plan {
	out := make([]Plan, len(planCatalog))
	copy(out, planCatalog)
	return out
}

// Subscription returns the account's tier and its plan. Unknown tiers fall
// back to the free plan rather than failing the dashboard.
func (b *LocalBilling) Subscription(ctx context.Context, accountID string) (*Subscription, error) {
	acc, err := b.Accounts.Profile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	plan := planCatalog[0]
	for _, p := range planCatalog {
		if p.Tier == acc.Tier {
			plan = p
			break
		}
	}
	return &Subscription{Tier: acc.Tier, Plan: plan}, nil
}
