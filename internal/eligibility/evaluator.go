// Package eligibility holds the pure decision logic deciding whether a
// promotion may apply to an order and how much it is worth. Functions here
// never mutate their inputs and are safe to call concurrently.
package eligibility

import (
	"time"

	"github.com/cowema/promotion-engine/internal/model"
)

// ReasonCode identifies which precondition rejected a promotion.
type ReasonCode string

const (
	ReasonNone                ReasonCode = ""
	ReasonInactive            ReasonCode = "inactive"
	ReasonExpired             ReasonCode = "expired"
	ReasonMinPurchase         ReasonCode = "min_purchase_not_met"
	ReasonTargetMismatch      ReasonCode = "target_mismatch"
	ReasonCityNotTargeted     ReasonCode = "city_not_targeted"
	ReasonCategoryNotTargeted ReasonCode = "category_not_targeted"
	ReasonHistoryNotMet       ReasonCode = "customer_history_not_met"
	ReasonNotCombinable       ReasonCode = "not_combinable"
	ReasonMaxCombinations     ReasonCode = "max_combinations_reached"
	ReasonCombinationGap      ReasonCode = "combination_gap_too_short"
)

// Verdict is the result of evaluating a promotion against an order.
type Verdict struct {
	Eligible       bool
	DiscountAmount float64
	Reason         ReasonCode
}

// Evaluate checks the promotion's preconditions in order, short-circuiting on
// the first failure, and computes the discount on success.
//
// Check order: active, not expired, minimum purchase, product-line target,
// city targeting, category targeting, customer history.
func Evaluate(p *model.Promotion, order model.OrderContext, now time.Time) Verdict {
	if !p.IsActive {
		return Verdict{Reason: ReasonInactive}
	}
	if !p.ExpiryDate.After(now) {
		return Verdict{Reason: ReasonExpired}
	}
	if order.Subtotal < p.MinPurchaseAmount {
		return Verdict{Reason: ReasonMinPurchase}
	}
	// An "all"-target promotion matches any product target; a ya-ba-boss
	// promotion matches only ya-ba-boss orders.
	if p.Target != model.TargetAll && p.Target != order.ProductTarget {
		return Verdict{Reason: ReasonTargetMismatch}
	}
	if len(p.TargetCities) > 0 && !contains(p.TargetCities, order.City) {
		return Verdict{Reason: ReasonCityNotTargeted}
	}
	if len(p.TargetCategories) > 0 && !contains(p.TargetCategories, order.Category) {
		return Verdict{Reason: ReasonCategoryNotTargeted}
	}
	if h := p.CustomerHistory; h != nil {
		if order.CustomerOrderCount < h.MinOrders || order.CustomerTotalSpent < h.MinAmount {
			return Verdict{Reason: ReasonHistoryNotMet}
		}
	}

	return Verdict{
		Eligible:       true,
		DiscountAmount: ComputeDiscount(p, order.Subtotal),
	}
}

// ComputeDiscount returns the discount amount for an eligible promotion:
// percentage of subtotal capped by MaxDiscount when set, or the fixed value.
// The result never exceeds the subtotal.
func ComputeDiscount(p *model.Promotion, subtotal float64) float64 {
	var amount float64
	switch p.DiscountType {
	case model.DiscountFixed:
		amount = p.Discount
	default:
		amount = subtotal * p.Discount / 100
		if p.MaxDiscount != nil && amount > *p.MaxDiscount {
			amount = *p.MaxDiscount
		}
	}
	if amount > subtotal {
		amount = subtotal
	}
	return amount
}

// EvaluateCombination checks whether the promotion may be stacked on top of
// the promotions already applied to the order. A promotion with no applied
// predecessors always passes.
func EvaluateCombination(p *model.Promotion, applied []model.AppliedPromotion, now time.Time) Verdict {
	if len(applied) == 0 {
		return Verdict{Eligible: true}
	}
	if !p.IsCombinable {
		return Verdict{Reason: ReasonNotCombinable}
	}
	if r := p.CombinationRules; r != nil {
		// The candidate itself counts toward the stack size.
		if r.MaxPromotions > 0 && len(applied)+1 > r.MaxPromotions {
			return Verdict{Reason: ReasonMaxCombinations}
		}
		if r.MinGapHours > 0 {
			gap := time.Duration(r.MinGapHours) * time.Hour
			for _, a := range applied {
				if now.Sub(a.AppliedAt) < gap {
					return Verdict{Reason: ReasonCombinationGap}
				}
			}
		}
	}
	return Verdict{Eligible: true}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
