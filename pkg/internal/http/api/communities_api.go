package api

import (
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func getCommunity(c *fiber.Ctx) error {
	communityId := c.Params("communityId")

	config, err := services.GetCommunityConfig(c.UserContext(), communityId)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	current, err := services.GetCurrentBook(c.UserContext(), communityId)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	queue, err := services.ListQueue(c.UserContext(), communityId, 0)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	active, err := services.FindActiveSelectionPoll(c.UserContext(), communityId)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"config":      config,
		"current":     current,
		"queue":       queue,
		"active_poll": active,
	})
}

func updateCommunityConfig(c *fiber.Ctx) error {
	var data struct {
		AnnouncementChannelID  *string `json:"announcement_channel_id"`
		PinPolls               *bool   `json:"pin_polls"`
		AutoCompleteOnDeadline bool    `json:"auto_complete_on_deadline"`
		MatureContentEnabled   bool    `json:"mature_content_enabled"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	config, err := services.SaveCommunityConfig(c.UserContext(), models.CommunityConfig{
		CommunityID:            c.Params("communityId"),
		AnnouncementChannelID:  data.AnnouncementChannelID,
		PinPolls:               data.PinPolls,
		AutoCompleteOnDeadline: data.AutoCompleteOnDeadline,
		MatureContentEnabled:   data.MatureContentEnabled,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(config)
}

func enqueueBook(c *fiber.Ctx) error {
	var data struct {
		BookID          string `json:"book_id" validate:"required"`
		SuggestedByID   string `json:"suggested_by_id" validate:"required"`
		SuggestedByName string `json:"suggested_by_name"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	item, err := services.EnqueueBook(c.UserContext(), models.QueuedBook{
		CommunityID:     c.Params("communityId"),
		BookID:          data.BookID,
		SuggestedByID:   data.SuggestedByID,
		SuggestedByName: data.SuggestedByName,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(item)
}

func parseDeadline(raw string) (*time.Time, error) {
	deadline, err := services.ParseDeadline(raw, time.Now())
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return deadline, nil
}

func createSelectionPoll(c *fiber.Ctx) error {
	var data struct {
		ChannelID string `json:"channel_id" validate:"required"`
		UserID    string `json:"user_id" validate:"required"`
		Size      int    `json:"size" validate:"omitempty,gte=2,lte=10"`
		Hours     int    `json:"hours" validate:"omitempty,gte=1,lte=167"`
		Deadline  string `json:"deadline"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}
	deadline, err := parseDeadline(data.Deadline)
	if err != nil {
		return err
	}

	poll, err := services.CreateSelectionPoll(c.UserContext(), services.SelectionPollRequest{
		CommunityID: c.Params("communityId"),
		ChannelID:   data.ChannelID,
		UserID:      data.UserID,
		Size:        data.Size,
		Hours:       data.Hours,
		Deadline:    deadline,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(poll)
}

func selectNextBook(c *fiber.Ctx) error {
	var data struct {
		ChannelID string `json:"channel_id" validate:"required"`
		UserID    string `json:"user_id" validate:"required"`
		Deadline  string `json:"deadline"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}
	deadline, err := parseDeadline(data.Deadline)
	if err != nil {
		return err
	}

	result, err := services.SelectNextBook(c.UserContext(), services.SelectNextRequest{
		CommunityID: c.Params("communityId"),
		ChannelID:   data.ChannelID,
		UserID:      data.UserID,
		Deadline:    deadline,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(result)
}

func finishBook(c *fiber.Ctx) error {
	var data struct {
		ChannelID string `json:"channel_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	outcome, err := services.FinishBook(c.UserContext(), c.Params("communityId"), data.ChannelID, services.TriggerManual)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(outcome)
}
