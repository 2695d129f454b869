package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-pick/internal/engine"
	"github.com/DoyleJ11/lol-pick/internal/hub"
	"github.com/DoyleJ11/lol-pick/internal/lobby"
	"github.com/DoyleJ11/lol-pick/internal/types"
)

const maxBody = 64 << 10

func CreateLobby(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, _, err := h.Create(r.Context())
		if err != nil {
			log.Error("failed to create lobby", zap.Error(err))
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func lobbyFor(h *hub.Hub, w http.ResponseWriter, r *http.Request) *lobby.Lobby {
	lb, err := h.Open(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return nil
	}
	return lb
}

func GetLobby(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb := lobbyFor(h, w, r)
		if lb == nil {
			return
		}
		snap, err := lb.Current(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.FromSnapshot(snap))
	}
}

func PutPlayers(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb := lobbyFor(h, w, r)
		if lb == nil {
			return
		}

		var req types.RosterRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		res, err := lb.Set(r.Context(), req.Players, req.Roll)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.FromResult(res))
	}
}

func Roll(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb := lobbyFor(h, w, r)
		if lb == nil {
			return
		}
		res, err := lb.Reroll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.FromResult(res))
	}
}

// Export returns the plain text block for the clipboard.
func Export(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb := lobbyFor(h, w, r)
		if lb == nil {
			return
		}
		snap, err := lb.Current(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(snap.Export))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrBadCode), errors.Is(err, hub.ErrNoLobby):
		http.Error(w, "lobby not found", http.StatusNotFound)
	case errors.Is(err, lobby.ErrTooManyPlayers), errors.Is(err, engine.ErrInvalidRoster):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, lobby.ErrClosed), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "lobby unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
