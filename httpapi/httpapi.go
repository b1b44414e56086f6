// Package httpapi exposes handler.Handler over HTTP using the
// teacher's own transport stack (api/api.go, main.go): a Fiber app with
// recover/cors middleware and a JSON ErrorResponse envelope for
// transport-level failures. Per-message authorization is carried by
// each message's own JWS, not by a request-level auth middleware, so
// this package never replicates the teacher's DDIAuthMiddleware: the
// DID proof already lives inside the envelope the handler verifies.
package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dwnlabs/dwn-core/handler"
)

// ErrorResponse is the JSON shape returned for transport-level
// failures (bad JSON body, routing errors) as opposed to pipeline
// rejections, which return the handler's own {code, detail} shape.
type ErrorResponse struct {
	Error string `json:"error"`
}

// errorHandler mirrors the teacher's api.ErrorHandler: map a Fiber
// error to a status code and a small JSON body instead of leaking a
// stack trace to the client.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}

// New builds a Fiber app exposing the write and query routes backed by
// h. appName surfaces in Fiber's startup banner; no "Server" header is set.
func New(h *handler.Handler, appName string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      appName,
		ErrorHandler: errorHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	registerRoutes(app, h)

	return app
}
