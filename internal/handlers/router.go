package handlers

import (
	"errors"
	"surveys/internal/app"
	"surveys/internal/handlers/middleware"
	"surveys/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

// NewServer builds the Fiber app with shared middleware and every route.
func NewServer(app *app.App) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:      "surveys " + app.Config.GeneralVersion,
		BodyLimit:    bodyLimit(app.Config.ServerBodyLimitMB),
		ErrorHandler: ErrorHandler,
	})

	app.Middleware.Setup(server)
	_ = Router(server, app)

	return server
}

func bodyLimit(mb int) int {
	if mb <= 0 {
		return fiber.DefaultBodyLimit
	}
	return mb * 1024 * 1024
}

// ErrorHandler answers errors that escape a handler, including Fiber's own
// routing errors, with the JSON envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
	}

	if status >= fiber.StatusInternalServerError {
		logger.New("handlers").Function("ErrorHandler").Er("unhandled error", err, "path", c.Path())
	}

	return c.Status(status).JSON(fiber.Map{"message": "error", "error": err.Error()})
}

func Router(router fiber.Router, app *app.App) (err error) {
	setupWebSocketRoute(router, app)

	api := router.Group("/api")
	HealthHandler(api, app.Config)
	NewSurveyTemplateHandler(*app, api).Register()
	NewSurveyHandler(*app, api).Register()

	return nil
}

func setupWebSocketRoute(router fiber.Router, app *app.App) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(func(c *websocket.Conn) {
		app.Websocket.HandleWebSocket(c)
	}))
}
