package routers

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mufasadev/transfers/internal/di"
	http2 "github.com/mufasadev/transfers/internal/infrastructure/api/http"
	"github.com/mufasadev/transfers/internal/infrastructure/api/middlewares"
)

func NewRouter(container *di.Container) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middlewares.RateLimitMiddleware(container.RateLimitInteractor))

	th := container.TransactionHandler
	router.Route("/v1/transactions", func(r chi.Router) {
		r.Post("/", th.Create)

		r.Route(fmt.Sprintf("/user/{%s}", http2.UserIDParam), func(r chi.Router) {
			r.Get("/", th.ListByUser)
			r.Get("/sent", th.ListSent)
			r.Get("/received", th.ListReceived)
		})

		r.Route(fmt.Sprintf("/{%s}", http2.TransactionIDParam), func(r chi.Router) {
			r.Get("/", th.Get)
			r.Patch("/", th.Revert)
			r.Delete("/", th.Delete)
			r.Put("/status", th.UpdateStatus)
		})
	})

	return router
}
