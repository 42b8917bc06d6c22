package model

import "time"

// DiscountType determines how a promotion's discount value is interpreted.
type DiscountType string

const (
	// DiscountPercentage applies discount as a 0-100 ratio of the order subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies discount as an absolute FCFA amount.
	DiscountFixed DiscountType = "fixed"
)

// Target restricts which product line a promotion applies to.
type Target string

const (
	// TargetAll matches any product line.
	TargetAll Target = "all"
	// TargetYaBaBoss matches only the Ya Ba Boss premium line.
	TargetYaBaBoss Target = "ya-ba-boss"
)

// UsageType controls how often a promotion may be redeemed.
type UsageType string

const (
	UsageUnlimited UsageType = "unlimited"
	UsageLimited   UsageType = "limited"
	UsageSingle    UsageType = "single_use"
)

// CustomerHistoryRequirement gates a promotion on the shopper's past activity.
type CustomerHistoryRequirement struct {
	MinOrders int     `json:"min_orders"`
	MinAmount float64 `json:"min_amount"`
}

// CombinationRules constrains stacking a combinable promotion with others.
type CombinationRules struct {
	MaxPromotions int `json:"max_promotions"`
	MinGapHours   int `json:"min_gap_hours"`
}

// Promotion represents one discount offer identified by a shopper-facing code.
type Promotion struct {
	ID                string                      `json:"id"`
	Code              string                      `json:"code"`
	Discount          float64                     `json:"discount"`
	DiscountType      DiscountType                `json:"discount_type"`
	MinPurchaseAmount float64                     `json:"min_purchase_amount"`
	MaxDiscount       *float64                    `json:"max_discount,omitempty"`
	ExpiryDate        time.Time                   `json:"expiry_date"`
	IsActive          bool                        `json:"is_active"`
	Target            Target                      `json:"target"`
	Description       string                      `json:"description"`
	UsageType         UsageType                   `json:"usage_type"`
	MaxUsesPerUser    int                         `json:"max_uses_per_user,omitempty"`
	TargetCities      []string                    `json:"target_cities,omitempty"`
	TargetCategories  []string                    `json:"target_categories,omitempty"`
	CustomerHistory   *CustomerHistoryRequirement `json:"customer_history_requirement,omitempty"`
	IsCombinable      bool                        `json:"is_combinable"`
	CombinationRules  *CombinationRules           `json:"combination_rules,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
}

// IsValid reports whether the promotion is active and not expired at t.
func (p *Promotion) IsValid(t time.Time) bool {
	return p.IsActive && p.ExpiryDate.After(t)
}

// CreatePromotionRequest is the DTO for creating a promotion.
// Discount is a pointer so "missing" and "zero" are distinguishable; the
// percentage upper bound and expiry checks are cross-field and enforced by
// the store before mutation.
type CreatePromotionRequest struct {
	Code              string                      `json:"code" validate:"required,notblank,max=64"`
	Discount          *float64                    `json:"discount" validate:"required"`
	DiscountType      DiscountType                `json:"discount_type" validate:"required,oneof=percentage fixed"`
	MinPurchaseAmount float64                     `json:"min_purchase_amount"`
	MaxDiscount       *float64                    `json:"max_discount" validate:"omitempty,gt=0"`
	ExpiryDate        time.Time                   `json:"expiry_date" validate:"required"`
	IsActive          bool                        `json:"is_active"`
	Target            Target                      `json:"target" validate:"required,oneof=all ya-ba-boss"`
	Description       string                      `json:"description" validate:"max=500"`
	UsageType         UsageType                   `json:"usage_type" validate:"omitempty,oneof=unlimited limited single_use"`
	MaxUsesPerUser    int                         `json:"max_uses_per_user" validate:"gte=0"`
	TargetCities      []string                    `json:"target_cities"`
	TargetCategories  []string                    `json:"target_categories"`
	CustomerHistory   *CustomerHistoryRequirement `json:"customer_history_requirement"`
	IsCombinable      bool                        `json:"is_combinable"`
	CombinationRules  *CombinationRules           `json:"combination_rules"`
}

// UpdatePromotionRequest carries a partial update; nil fields are left untouched.
type UpdatePromotionRequest struct {
	Code              *string                     `json:"code" validate:"omitempty,notblank,max=64"`
	Discount          *float64                    `json:"discount"`
	DiscountType      *DiscountType               `json:"discount_type" validate:"omitempty,oneof=percentage fixed"`
	MinPurchaseAmount *float64                    `json:"min_purchase_amount"`
	MaxDiscount       *float64                    `json:"max_discount" validate:"omitempty,gt=0"`
	ExpiryDate        *time.Time                  `json:"expiry_date"`
	IsActive          *bool                       `json:"is_active"`
	Target            *Target                     `json:"target" validate:"omitempty,oneof=all ya-ba-boss"`
	Description       *string                     `json:"description" validate:"omitempty,max=500"`
	UsageType         *UsageType                  `json:"usage_type" validate:"omitempty,oneof=unlimited limited single_use"`
	MaxUsesPerUser    *int                        `json:"max_uses_per_user" validate:"omitempty,gte=0"`
	TargetCities      []string                    `json:"target_cities"`
	TargetCategories  []string                    `json:"target_categories"`
	CustomerHistory   *CustomerHistoryRequirement `json:"customer_history_requirement"`
	IsCombinable      *bool                       `json:"is_combinable"`
	CombinationRules  *CombinationRules           `json:"combination_rules"`
}

// AppliedPromotion records a promotion already applied to the current order,
// used when checking combination rules.
type AppliedPromotion struct {
	PromotionID string    `json:"promotion_id"`
	AppliedAt   time.Time `json:"applied_at"`
}

// OrderContext describes the order a promotion code is evaluated against.
type OrderContext struct {
	Subtotal           float64            `json:"subtotal" validate:"gt=0"`
	ProductTarget      Target             `json:"product_target" validate:"required,oneof=all ya-ba-boss"`
	City               string             `json:"city"`
	Category           string             `json:"category"`
	CustomerOrderCount int                `json:"customer_order_count"`
	CustomerTotalSpent float64            `json:"customer_total_spent"`
	UserID             string             `json:"user_id"`
	Applied            []AppliedPromotion `json:"applied_promotions"`
}

// ApplyResult is the outcome of applying a promotion code to an order.
// Rejections are a domain answer, not an error: Success is false and Message
// carries the shopper-facing reason.
type ApplyResult struct {
	Success        bool    `json:"success"`
	DiscountAmount float64 `json:"discount_amount"`
	Message        string  `json:"message"`
}

// ApplyCodeRequest is the DTO for applying a code at checkout.
type ApplyCodeRequest struct {
	Code  string       `json:"code" validate:"required,notblank,max=64"`
	Order OrderContext `json:"order" validate:"required"`
}

// UsageEvent records a successful application of a promotion to an order.
type UsageEvent struct {
	PromotionID     string  `json:"promotion_id"`
	UserID          string  `json:"user_id"`
	DiscountApplied float64 `json:"discount_applied"`
}
