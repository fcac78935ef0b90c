package api

import (
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func getPoll(c *fiber.Ctx) error {
	record, err := services.GetPollByMessage(c.UserContext(), c.Params("messageId"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else if record == nil {
		return fiber.NewError(fiber.StatusNotFound, "poll not found")
	}

	return c.JSON(record)
}

func resolvePoll(c *fiber.Ctx) error {
	messageId := c.Params("messageId")

	if record, err := services.GetPollByMessage(c.UserContext(), messageId); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else if record == nil {
		return fiber.NewError(fiber.StatusNotFound, "poll not found")
	}

	if err := services.ForceResolvePoll(c.UserContext(), messageId); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	record, err := services.GetPollByMessage(c.UserContext(), messageId)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(record)
}
