package middleware

import (
	"fmt"
	"strings"
	"surveys/config"
	"surveys/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

type Middleware struct {
	Config config.Config
	log    logger.Logger
}

func New(config config.Config) Middleware {
	return Middleware{
		Config: config,
		log:    logger.New("middleware"),
	}
}

// Setup installs the middleware every route shares, outermost first.
func (m Middleware) Setup(app *fiber.App) {
	app.Use(requestid.New())
	app.Use(m.Recover())
	app.Use(m.AccessLog())
	app.Use(m.Cors())
}

func (m Middleware) Recover() fiber.Handler {
	log := m.log.Function("Recover")
	return recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			log.ErMsg("recovered from panic",
				"panic", fmt.Sprint(e),
				"method", c.Method(),
				"path", c.Path(),
			)
		},
	})
}

// AccessLog writes one line per request through the shared slog handler.
func (m Middleware) AccessLog() fiber.Handler {
	slogger := m.log.Function("AccessLog").Slog()
	return fiberLogger.New(fiberLogger.Config{
		Format:     "${locals:requestid} ${status} ${method} ${path} ${latency}\n",
		TimeFormat: "2006-01-02T15:04:05Z07:00",
		Output:     slogWriter{log: slogger.Info},
	})
}

func (m Middleware) Cors() fiber.Handler {
	origins := strings.TrimSpace(m.Config.CorsAllowOrigins)
	if origins == "" {
		origins = "*"
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "Content-Disposition",
		AllowCredentials: origins != "*",
		MaxAge:           300,
	})
}

type slogWriter struct {
	log func(msg string, args ...any)
}

func (w slogWriter) Write(p []byte) (int, error) {
	w.log("request", "line", strings.TrimSpace(string(p)))
	return len(p), nil
}
