package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/21Gxme/Agnos/internal/handler"
	mw "github.com/21Gxme/Agnos/internal/middleware"
)

func New(recH *handler.RecordHandler, ws http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS)

	r.Get("/healthz", recH.Health)

	// Realtime surface
	r.Get("/ws", ws)

	// Request/response surface, used by the cascade's second tier and for
	// catch-up when the realtime channel is down.
	r.Get("/records", recH.List)
	r.Post("/records", recH.Create)
	r.Get("/records/{id}", recH.Get)
	r.Put("/records/{id}", recH.Update)

	return r
}
