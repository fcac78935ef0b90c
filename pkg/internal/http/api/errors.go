package api

import (
	"errors"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrGuardKept),
		errors.Is(err, services.ErrActivePollExists),
		errors.Is(err, services.ErrCurrentBookExists),
		database.IsUniqueViolation(err):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNoCurrentBook),
		errors.Is(err, services.ErrBookNotInQueue):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrQueueTooSmall),
		errors.Is(err, services.ErrQueueEmpty),
		errors.Is(err, services.ErrInvalidDeadline):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrContentBlocked):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
