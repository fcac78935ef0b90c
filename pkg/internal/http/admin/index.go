package admin

import (
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/http/exts"
	"github.com/gofiber/fiber/v2"
)

func MapControllers(app *fiber.App, baseURL string) {
	admin := app.Group(baseURL, exts.OperatorOnly)
	{
		admin.Post("/sweep", adminTriggerSweep)
		admin.Post("/sweep/deadlines", adminTriggerDeadlineSweep)
	}
}
