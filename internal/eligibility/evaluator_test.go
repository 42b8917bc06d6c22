package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowema/promotion-engine/internal/model"
)

func floatPtr(f float64) *float64 {
	return &f
}

// welcomePromotion mirrors the standing WELCOME10 offer: 10% capped at 2000,
// minimum purchase 5000, all product lines, expires in 30 days.
func welcomePromotion(now time.Time) *model.Promotion {
	return &model.Promotion{
		ID:                "promo-1",
		Code:              "WELCOME10",
		Discount:          10,
		DiscountType:      model.DiscountPercentage,
		MinPurchaseAmount: 5000,
		MaxDiscount:       floatPtr(2000),
		ExpiryDate:        now.AddDate(0, 0, 30),
		IsActive:          true,
		Target:            model.TargetAll,
	}
}

func TestEvaluate_PercentageUnderCap(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll}, now)

	require.True(t, v.Eligible)
	assert.Equal(t, 2000.0, v.DiscountAmount, "10% of 20000 is exactly 2000, under the cap")
	assert.Equal(t, ReasonNone, v.Reason)
}

func TestEvaluate_PercentageClampedByMaxDiscount(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)

	v := Evaluate(p, model.OrderContext{Subtotal: 30000, ProductTarget: model.TargetAll}, now)

	require.True(t, v.Eligible)
	assert.Equal(t, 2000.0, v.DiscountAmount, "10% of 30000 is 3000, clamped to cap 2000")
}

func TestEvaluate_MinPurchaseNotMet(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)

	v := Evaluate(p, model.OrderContext{Subtotal: 3000, ProductTarget: model.TargetAll}, now)

	require.False(t, v.Eligible)
	assert.Equal(t, ReasonMinPurchase, v.Reason)
	assert.Zero(t, v.DiscountAmount)
}

func TestEvaluate_ExpiredPromotion(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.ExpiryDate = now.AddDate(0, 0, -1) // expired yesterday, still active

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll}, now)

	require.False(t, v.Eligible)
	assert.Equal(t, ReasonExpired, v.Reason)
}

func TestEvaluate_ExpiryBoundaryIsExclusive(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.ExpiryDate = now // valid strictly before, invalid at the instant

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll}, now)

	require.False(t, v.Eligible)
	assert.Equal(t, ReasonExpired, v.Reason)
}

func TestEvaluate_InactivePromotion(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.IsActive = false

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll}, now)

	require.False(t, v.Eligible)
	assert.Equal(t, ReasonInactive, v.Reason, "inactive check runs before expiry")
}

func TestEvaluate_TargetMismatch(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.Target = model.TargetYaBaBoss

	// All other preconditions satisfied; target mismatch alone rejects.
	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll}, now)

	require.False(t, v.Eligible)
	assert.Equal(t, ReasonTargetMismatch, v.Reason)
}

func TestEvaluate_YaBaBossTargetMatchesYaBaBossOrder(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.Target = model.TargetYaBaBoss

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetYaBaBoss}, now)

	assert.True(t, v.Eligible)
}

func TestEvaluate_AllTargetMatchesAnyProductTarget(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetYaBaBoss}, now)

	assert.True(t, v.Eligible)
}

func TestEvaluate_CityTargeting(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.TargetCities = []string{"Brazzaville", "Pointe-Noire"}

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll, City: "Dolisie"}, now)
	require.False(t, v.Eligible)
	assert.Equal(t, ReasonCityNotTargeted, v.Reason)

	v = Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll, City: "Brazzaville"}, now)
	assert.True(t, v.Eligible)
}

func TestEvaluate_EmptyCityListIsUnrestricted(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll, City: "Dolisie"}, now)

	assert.True(t, v.Eligible)
}

func TestEvaluate_CategoryTargeting(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.TargetCategories = []string{"electronique"}

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll, Category: "mode"}, now)
	require.False(t, v.Eligible)
	assert.Equal(t, ReasonCategoryNotTargeted, v.Reason)

	v = Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll, Category: "electronique"}, now)
	assert.True(t, v.Eligible)
}

func TestEvaluate_CustomerHistoryRequirement(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.CustomerHistory = &model.CustomerHistoryRequirement{MinOrders: 3, MinAmount: 50000}

	order := model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll}

	order.CustomerOrderCount = 2
	order.CustomerTotalSpent = 60000
	v := Evaluate(p, order, now)
	require.False(t, v.Eligible, "order count below minimum")
	assert.Equal(t, ReasonHistoryNotMet, v.Reason)

	order.CustomerOrderCount = 5
	order.CustomerTotalSpent = 40000
	v = Evaluate(p, order, now)
	require.False(t, v.Eligible, "total spent below minimum")

	order.CustomerTotalSpent = 50000
	v = Evaluate(p, order, now)
	assert.True(t, v.Eligible, "both minimums met exactly")
}

func TestEvaluate_FixedDiscount(t *testing.T) {
	now := time.Now()
	p := &model.Promotion{
		Code:         "MOINS5000",
		Discount:     5000,
		DiscountType: model.DiscountFixed,
		ExpiryDate:   now.AddDate(0, 0, 7),
		IsActive:     true,
		Target:       model.TargetAll,
	}

	v := Evaluate(p, model.OrderContext{Subtotal: 20000, ProductTarget: model.TargetAll}, now)

	require.True(t, v.Eligible)
	assert.Equal(t, 5000.0, v.DiscountAmount)
}

func TestComputeDiscount_NeverExceedsSubtotal(t *testing.T) {
	now := time.Now()
	fixed := &model.Promotion{
		Discount:     5000,
		DiscountType: model.DiscountFixed,
		ExpiryDate:   now.AddDate(0, 0, 7),
		IsActive:     true,
		Target:       model.TargetAll,
	}

	// A fixed discount larger than the order cannot make the order negative.
	assert.Equal(t, 3000.0, ComputeDiscount(fixed, 3000))

	pct := &model.Promotion{
		Discount:     100,
		DiscountType: model.DiscountPercentage,
	}
	assert.Equal(t, 3000.0, ComputeDiscount(pct, 3000), "100% discount equals the subtotal")
}

func TestEvaluate_CheckOrderShortCircuits(t *testing.T) {
	now := time.Now()
	// Expired AND below minimum: the expiry reason wins because it is
	// checked first.
	p := welcomePromotion(now)
	p.ExpiryDate = now.AddDate(0, 0, -1)

	v := Evaluate(p, model.OrderContext{Subtotal: 1000, ProductTarget: model.TargetAll}, now)

	assert.Equal(t, ReasonExpired, v.Reason)
}

func TestEvaluateCombination_NoAppliedPromotions(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.IsCombinable = false

	v := EvaluateCombination(p, nil, now)

	assert.True(t, v.Eligible, "a lone promotion never hits combination rules")
}

func TestEvaluateCombination_NotCombinable(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)

	applied := []model.AppliedPromotion{{PromotionID: "other", AppliedAt: now.Add(-48 * time.Hour)}}
	v := EvaluateCombination(p, applied, now)

	require.False(t, v.Eligible)
	assert.Equal(t, ReasonNotCombinable, v.Reason)
}

func TestEvaluateCombination_MaxPromotions(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.IsCombinable = true
	p.CombinationRules = &model.CombinationRules{MaxPromotions: 2}

	applied := []model.AppliedPromotion{
		{PromotionID: "a", AppliedAt: now.Add(-48 * time.Hour)},
		{PromotionID: "b", AppliedAt: now.Add(-24 * time.Hour)},
	}
	v := EvaluateCombination(p, applied, now)

	require.False(t, v.Eligible, "candidate would be the third of max two")
	assert.Equal(t, ReasonMaxCombinations, v.Reason)

	v = EvaluateCombination(p, applied[:1], now)
	assert.True(t, v.Eligible, "candidate is the second of max two")
}

func TestEvaluateCombination_MinGapHours(t *testing.T) {
	now := time.Now()
	p := welcomePromotion(now)
	p.IsCombinable = true
	p.CombinationRules = &model.CombinationRules{MinGapHours: 24}

	applied := []model.AppliedPromotion{{PromotionID: "a", AppliedAt: now.Add(-2 * time.Hour)}}
	v := EvaluateCombination(p, applied, now)

	require.False(t, v.Eligible)
	assert.Equal(t, ReasonCombinationGap, v.Reason)

	applied[0].AppliedAt = now.Add(-25 * time.Hour)
	v = EvaluateCombination(p, applied, now)
	assert.True(t, v.Eligible)
}
