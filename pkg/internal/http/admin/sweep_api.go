package admin

import (
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func adminTriggerSweep(c *fiber.Ctx) error {
	count, err := services.SweepExpiredPolls(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"checked": count})
}

func adminTriggerDeadlineSweep(c *fiber.Ctx) error {
	count, err := services.SweepDeadlines(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"finished": count})
}
