package api

import (
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/http/exts"
	"github.com/gofiber/fiber/v2"
)

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL, exts.OperatorOnly)
	{
		polls := api.Group("/polls")
		{
			polls.Get("/:messageId", getPoll)
			polls.Post("/:messageId/resolve", resolvePoll)
		}

		communities := api.Group("/communities/:communityId")
		{
			communities.Get("/", getCommunity)
			communities.Put("/config", updateCommunityConfig)
			communities.Post("/queue", enqueueBook)
			communities.Post("/selection-polls", createSelectionPoll)
			communities.Post("/select-next", selectNextBook)
			communities.Post("/finish", finishBook)
		}
	}
}
