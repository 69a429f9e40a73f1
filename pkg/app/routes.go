package app

// initDefaultRoutes initializes the applications default routes.
// Every route can be switched off in the webservices section of the configuration.
func (app *App) initDefaultRoutes() {
	api := app.web.Group("/")
	if app.config.Webserver.Webservices["version"] {
		api.Get("/version", app.HandleVersion())
	}
	if app.config.Webserver.Webservices["health"] {
		api.Get("/health", app.HandleHealth())
	}
	if app.config.Webserver.Webservices["status"] {
		api.Get("/status", app.HandleStatus())
	}
	if app.config.Webserver.Webservices["start"] {
		api.Post("/start", app.HandleStart())
	}
	if app.config.Webserver.Webservices["flash"] {
		api.Post("/flash", app.HandleFlash())
	}
	if app.config.Webserver.Webservices["command"] {
		api.Post("/command", app.HandleCommand())
	}
	if app.config.Webserver.Webservices["metrics"] {
		api.Get("/metrics", app.HandleMetrics())
	}
}
