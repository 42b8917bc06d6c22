package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/cowema/promotion-engine/internal/model"
	"github.com/cowema/promotion-engine/internal/store"
)

// PromotionStoreInterface defines the store operations the admin API needs.
type PromotionStoreInterface interface {
	All() []model.Promotion
	Surfaced() *model.Promotion
	GetByCode(code string) *model.Promotion
	Create(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error)
	Update(ctx context.Context, id string, req *model.UpdatePromotionRequest) (*model.Promotion, error)
	Remove(ctx context.Context, id string) error
}

// PromotionHandler handles HTTP requests for promotion administration and
// storefront reads.
type PromotionHandler struct {
	store     PromotionStoreInterface
	validator *validator.Validate
}

// NewPromotionHandler creates a new PromotionHandler with the given store and validator.
func NewPromotionHandler(s PromotionStoreInterface, v *validator.Validate) *PromotionHandler {
	return &PromotionHandler{store: s, validator: v}
}

// Admin-form sections. Validation errors carry the section of the offending
// field so the form can focus the right tab.
const (
	sectionGeneral    = "general"
	sectionConditions = "conditions"
	sectionTargeting  = "targeting"
	sectionAdvanced   = "advanced"
)

// fieldSection maps a request field to its admin-form section.
func fieldSection(field string) string {
	switch field {
	case "MinPurchaseAmount", "ExpiryDate", "MaxDiscount":
		return sectionConditions
	case "Target", "TargetCities", "TargetCategories", "CustomerHistory":
		return sectionTargeting
	case "UsageType", "MaxUsesPerUser", "IsCombinable", "CombinationRules":
		return sectionAdvanced
	default:
		return sectionGeneral
	}
}

// formatValidationError converts validator errors to an admin-facing message
// plus the form section to focus.
func formatValidationError(err error) (string, string) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			section := fieldSection(field)
			switch fe.Tag() {
			case "required":
				return "invalid request: " + field + " is required", section
			case "notblank":
				return "invalid request: " + field + " cannot be whitespace only", section
			case "max":
				return "invalid request: " + field + " exceeds maximum length", section
			case "oneof":
				return "invalid request: " + field + " has an invalid value", section
			case "gt", "gte":
				return "invalid request: " + field + " is out of range", section
			default:
				return "invalid request: " + field + " is invalid", section
			}
		}
	}
	return "invalid request", sectionGeneral
}

// boundsError maps store validation sentinels to an admin message and form
// section. Returns false when the error is not a bounds violation.
func boundsError(err error) (string, string, bool) {
	switch {
	case errors.Is(err, store.ErrInvalidDiscount):
		return "discount must be greater than zero", sectionGeneral, true
	case errors.Is(err, store.ErrPercentageOutOfRange):
		return "percentage discount cannot exceed 100", sectionGeneral, true
	case errors.Is(err, store.ErrNegativeMinPurchase):
		return "minimum purchase amount cannot be negative", sectionConditions, true
	case errors.Is(err, store.ErrExpiryNotFuture):
		return "expiry date must be in the future", sectionConditions, true
	}
	return "", "", false
}

// ListPromotions handles GET /api/promotions for the admin list view.
func (h *PromotionHandler) ListPromotions(c *fiber.Ctx) error {
	return c.JSON(h.store.All())
}

// GetSurfaced handles GET /api/promotions/surfaced. Returns 204 when no
// promotion is currently surfaced.
func (h *PromotionHandler) GetSurfaced(c *fiber.Ctx) error {
	p := h.store.Surfaced()
	if p == nil {
		return c.Status(fiber.StatusNoContent).Send(nil)
	}
	return c.JSON(p)
}

// GetByCode handles GET /api/promotions/code/:code requests.
func (h *PromotionHandler) GetByCode(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: code is required"})
	}

	p := h.store.GetByCode(code)
	if p == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
	}
	return c.JSON(p)
}

// CreatePromotion handles POST /api/promotions requests.
func (h *PromotionHandler) CreatePromotion(c *fiber.Ctx) error {
	var req model.CreatePromotionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		msg, section := formatValidationError(err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "section": section})
	}

	p, err := h.store.Create(c.Context(), &req)
	if err != nil {
		if msg, section, ok := boundsError(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "section": section})
		}
		if errors.Is(err, store.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("code", req.Code).Msg("failed to create promotion")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("promotion_id", p.ID).Str("code", p.Code).Msg("promotion created")
	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdatePromotion handles PATCH /api/promotions/:id requests.
func (h *PromotionHandler) UpdatePromotion(c *fiber.Ctx) error {
	id := c.Params("id")

	var req model.UpdatePromotionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		msg, section := formatValidationError(err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "section": section})
	}

	return h.applyUpdate(c, id, &req)
}

// ActivatePromotion handles POST /api/promotions/:id/activate.
func (h *PromotionHandler) ActivatePromotion(c *fiber.Ctx) error {
	active := true
	return h.applyUpdate(c, c.Params("id"), &model.UpdatePromotionRequest{IsActive: &active})
}

// DeactivatePromotion handles POST /api/promotions/:id/deactivate.
func (h *PromotionHandler) DeactivatePromotion(c *fiber.Ctx) error {
	active := false
	return h.applyUpdate(c, c.Params("id"), &model.UpdatePromotionRequest{IsActive: &active})
}

func (h *PromotionHandler) applyUpdate(c *fiber.Ctx, id string, req *model.UpdatePromotionRequest) error {
	p, err := h.store.Update(c.Context(), id, req)
	if err != nil {
		if errors.Is(err, store.ErrPromotionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
		}
		if msg, section, ok := boundsError(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "section": section})
		}
		log.Error().Err(err).Str("promotion_id", id).Msg("failed to update promotion")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(p)
}

// DeletePromotion handles DELETE /api/promotions/:id requests.
func (h *PromotionHandler) DeletePromotion(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.store.Remove(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrPromotionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promotion not found"})
		}
		log.Error().Err(err).Str("promotion_id", id).Msg("failed to delete promotion")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("promotion_id", id).Msg("promotion deleted")
	return c.Status(fiber.StatusNoContent).Send(nil)
}
