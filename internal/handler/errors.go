package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/housing-engine/internal/domain"
)

func toHTTPError(err error) error {
	var derr *domain.DeliveryError
	if errors.As(err, &derr) {
		return fiber.NewError(deliveryStatus(derr.Code), derr.Error())
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}

// deliveryStatus separates a bad message (400) from a deployment without
// usable mail settings (503) and a failed send (502).
func deliveryStatus(code domain.DeliveryCode) int {
	switch code {
	case domain.DeliveryNoToAddress, domain.DeliveryNoSubject, domain.DeliveryNoBody:
		return fiber.StatusBadRequest
	case domain.DeliveryTransportFailure:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusServiceUnavailable
	}
}

func parseID(c *fiber.Ctx) (int64, error) {
	raw := strings.TrimSpace(c.Params("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid application id %q", domain.ErrValidation, raw)
	}
	return id, nil
}
