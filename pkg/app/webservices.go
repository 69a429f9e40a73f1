package app

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/womat/debug"
	"pintest/pkg/command"
	"pintest/pkg/harness"
	"pintest/pkg/port"
)

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	if err := app.web.Listen(app.urlParsed.Host); app.ctx.Err() == nil {
		debug.ErrorLog.Printf("web server stopped: %v", err)
		app.stop()
	}
}

// statusResponse is the payload of the status web service.
type statusResponse struct {
	harness.Snapshot
	Lines  port.LineSet `json:"lines"`
	Events []string     `json:"events"`
}

// HandleStatus returns the state of the controller, the result of the last run
// and the most recent status lines.
func (app *App) HandleStatus() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.DebugLog.Print("web request status")

		return ctx.JSON(statusResponse{
			Snapshot: app.controller.Status(),
			Lines:    app.controller.Lines(),
			Events:   app.events.Lines(),
		})
	}
}

// HandleStart posts a start request, it is ignored while a run is active.
func (app *App) HandleStart() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request start")

		app.controller.RequestStart()
		return ctx.SendStatus(http.StatusAccepted)
	}
}

// HandleFlash posts a bootloader entry request.
func (app *App) HandleFlash() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request flash")

		app.controller.RequestFlash()
		return ctx.SendStatus(http.StatusAccepted)
	}
}

// HandleCommand accepts an operator command as plain text body.
func (app *App) HandleCommand() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		body := string(ctx.Body())
		debug.InfoLog.Printf("web request command %q", body)

		c := command.Dispatch(app.controller, body)
		if c == command.Unknown {
			return fiber.NewError(http.StatusBadRequest, "unknown command")
		}
		ctx.Status(http.StatusAccepted)
		return ctx.JSON(fiber.Map{"command": c.String()})
	}
}

// HandleMetrics serves the prometheus metrics of the controller.
func (app *App) HandleMetrics() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(app.metrics.Registry(), promhttp.HandlerOpts{}))
}
