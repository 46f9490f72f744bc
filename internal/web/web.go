// Package web exposes the liveness endpoint hosting platforms probe.
package web

import "github.com/gofiber/fiber/v2"

func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	ok := func(c *fiber.Ctx) error {
		return c.SendString("OK")
	}

	app.Get("/", ok)
	app.Get("/health", ok)

	return app
}
