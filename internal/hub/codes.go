package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-pick/internal/lobby"
	"github.com/DoyleJ11/lol-pick/internal/store"
)

var ErrBadCode = errors.New("malformed lobby code")
var ErrNoLobby = errors.New("no such lobby")

// generateCode is a var so tests can force collisions.
var generateCode = GenerateCode

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// ValidCode reports whether code looks like one GenerateCode produced.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Open returns the lobby for code. A code with no running lobby is reopened
// only when the store still holds a roster for it, so rosters outlive a
// restart but guessing codes never starts a lobby.
func (h *Hub) Open(ctx context.Context, code string) (*lobby.Lobby, error) {
	if !ValidCode(code) {
		return nil, ErrBadCode
	}
	lb, err := h.Get(ctx, code)
	if err != nil || lb != nil {
		return lb, err
	}
	saved, err := h.saved(ctx, code)
	if err != nil {
		return nil, err
	}
	if !saved {
		return nil, ErrNoLobby
	}
	return h.Ensure(ctx, code)
}

// Create opens a lobby under a fresh code: one with no running lobby and no
// roster left in the store from before a restart.
func (h *Hub) Create(ctx context.Context) (string, *lobby.Lobby, error) {
	for {
		code, err := generateCode()
		if err != nil {
			return "", nil, fmt.Errorf("generate code: %w", err)
		}
		existing, err := h.Get(ctx, code)
		if err != nil {
			return "", nil, err
		}
		if existing == nil {
			saved, err := h.saved(ctx, code)
			if err != nil {
				return "", nil, err
			}
			if !saved {
				lb, err := h.Ensure(ctx, code)
				return code, lb, err
			}
		}
		h.opts.Log.Debug("collision on code, regenerating", zap.String("code", code))
	}
}

func (h *Hub) saved(ctx context.Context, code string) (bool, error) {
	players, err := h.opts.Store.Load(ctx, store.Key(code))
	if err != nil {
		h.opts.Metrics.StoreError("load")
		return false, fmt.Errorf("load roster %s: %w", code, err)
	}
	return len(players) > 0, nil
}
