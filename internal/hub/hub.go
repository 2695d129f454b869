package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-pick/internal/engine"
	"github.com/DoyleJ11/lol-pick/internal/lobby"
	"github.com/DoyleJ11/lol-pick/internal/metrics"
	"github.com/DoyleJ11/lol-pick/internal/rng"
	"github.com/DoyleJ11/lol-pick/internal/store"
)

type HubMsg interface{ isHubMsg() }

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// EnsureLobby returns the lobby for Code, opening it (and restoring its
// roster from the store) on first use.
type EnsureLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby shuts down and forgets the lobby for Code. When Lobby is set,
// only that exact lobby is removed, so a late notice from an idle lobby
// cannot take down its replacement.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type ShutdownHub struct{}

func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Store   store.Store
	NewRand func() engine.Rand // one source per lobby, defaults to rng.Random
	Log     *zap.Logger
	Metrics *metrics.Metrics
	// IdleTimeout is handed to every lobby; idle lobbies remove themselves.
	IdleTimeout time.Duration
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    Options
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.NewRand == nil {
		opts.NewRand = func() engine.Rand { return rng.Random() }
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			// lobbies share h.ctx and stop on their own
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				msg.Reply <- h.running(msg.Code) // May be nil

			case EnsureLobby:
				if lb := h.running(msg.Code); lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.open(msg.Code)

			case RemoveLobby:
				lb := h.lobbies[msg.Code]
				if lb == nil || (msg.Lobby != nil && msg.Lobby != lb) {
					break
				}
				shutdown(lb)
				delete(h.lobbies, msg.Code)
				h.opts.Log.Info("lobby removed", zap.String("code", msg.Code))

			case ShutdownHub:
				for _, lb := range h.lobbies {
					shutdown(lb)
				}
				clear(h.lobbies)
				h.cancel()
			}
		}
	}
}

// running returns the live lobby for code. A lobby that already stopped is
// dropped from the map.
func (h *Hub) running(code string) *lobby.Lobby {
	lb := h.lobbies[code]
	if lb == nil {
		return nil
	}
	select {
	case <-lb.Done():
		delete(h.lobbies, code)
		return nil
	default:
		return lb
	}
}

func (h *Hub) open(code string) *lobby.Lobby {
	lb := lobby.NewLobby(h.ctx, lobby.Options{
		Key:         store.Key(code),
		Store:       h.opts.Store,
		Rand:        h.opts.NewRand(),
		Log:         h.opts.Log,
		Metrics:     h.opts.Metrics,
		IdleTimeout: h.opts.IdleTimeout,
		OnIdle: func(lb *lobby.Lobby) {
			select {
			case h.inbox <- RemoveLobby{Code: code, Lobby: lb}:
			case <-h.ctx.Done():
			}
		},
	})
	h.lobbies[code] = lb
	h.opts.Log.Info("lobby opened", zap.String("code", code))
	return lb
}

// shutdown asks lb to stop without blocking on a lobby that already has.
func shutdown(lb *lobby.Lobby) {
	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-lb.Done():
	}
}

// Get returns the open lobby for code, or nil.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return h.ask(ctx, GetLobby{Code: code, Reply: reply}, reply)
}

func (h *Hub) Ensure(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return h.ask(ctx, EnsureLobby{Code: code, Reply: reply}, reply)
}

func (h *Hub) ask(ctx context.Context, msg HubMsg, reply chan *lobby.Lobby) (*lobby.Lobby, error) {
	select {
	case h.inbox <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
