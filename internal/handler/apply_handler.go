package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/cowema/promotion-engine/internal/model"
)

// ApplyStoreInterface defines the checkout-facing store operation.
type ApplyStoreInterface interface {
	ApplyCode(ctx context.Context, code string, order model.OrderContext) model.ApplyResult
}

// ApplyHandler handles promotion-code application at checkout.
type ApplyHandler struct {
	store     ApplyStoreInterface
	validator *validator.Validate
}

// NewApplyHandler creates a new ApplyHandler with the given store and validator.
func NewApplyHandler(s ApplyStoreInterface, v *validator.Validate) *ApplyHandler {
	return &ApplyHandler{store: s, validator: v}
}

// formatApplyValidationError converts validator errors on the apply request
// to a message.
func formatApplyValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			switch fe.Tag() {
			case "required":
				return "invalid request: " + field + " is required"
			case "notblank":
				return "invalid request: " + field + " cannot be whitespace only"
			case "gt":
				return "invalid request: " + field + " must be greater than zero"
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// ApplyCode handles POST /api/promotions/apply requests. A rejected code is a
// domain answer, not a transport error: the response is 200 with success
// false and the shopper-facing message.
func (h *ApplyHandler) ApplyCode(c *fiber.Ctx) error {
	var req model.ApplyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatApplyValidationError(err)})
	}

	result := h.store.ApplyCode(c.Context(), req.Code, req.Order)

	if result.Success {
		log.Info().
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("code", req.Code).
			Float64("subtotal", req.Order.Subtotal).
			Float64("discount", result.DiscountAmount).
			Msg("promotion code applied")
	} else {
		log.Debug().
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("code", req.Code).
			Str("message", result.Message).
			Msg("promotion code rejected")
	}

	return c.JSON(result)
}
