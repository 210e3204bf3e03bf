package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/handlers"
	"portfolio-api/internal/middleware"
)

// Router builds the HTTP surface: request ids, panic recovery and access
// logging wrap every route.
func (app *App) Router() http.Handler {
	h := handlers.New(handlers.Deps{
		Blog:     app.Blog,
		News:     app.News,
		Weather:  app.Weather,
		Location: app.Location,
		Visitors: app.Visitors,
		Notifier: app.Notifier,
		Store:    app.Store,
		Breakers: app.Upstream.Breakers,
		DevMode:  app.Config.IsDevelopment(),
		Logger:   logging.Component("handlers"),
	})

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(logging.Component("recovery")))
	router.Use(middleware.Logging(logging.Component("http"), app.Config.IsDevelopment()))

	h.RegisterRoutes(router, app.Limiter, app.Gate)
	return router
}
