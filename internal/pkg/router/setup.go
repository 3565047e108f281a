package router

import "github.com/gofiber/fiber/v2"

// InstallRouter installs all application routes.
func InstallRouter(app *fiber.App) {
	setup(app, NewHttpRouter(), NewApiRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

// Router installs a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}
