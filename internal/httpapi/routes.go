package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-pick/internal/hub"
	"github.com/DoyleJ11/lol-pick/internal/logging"
	"github.com/DoyleJ11/lol-pick/internal/metrics"
	"github.com/DoyleJ11/lol-pick/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Requests(log))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/lobbies", CreateLobby(h, log))
	r.Route("/lobbies/{code}", func(r chi.Router) {
		r.Get("/", GetLobby(h))
		r.Put("/players", PutPlayers(h))
		r.Post("/roll", Roll(h))
		r.Get("/export", Export(h))
	})
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	return r
}
