package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-pick/internal/engine"
	"github.com/DoyleJ11/lol-pick/internal/export"
	"github.com/DoyleJ11/lol-pick/internal/metrics"
	"github.com/DoyleJ11/lol-pick/internal/rng"
	"github.com/DoyleJ11/lol-pick/internal/store"
)

var ErrTooManyPlayers = fmt.Errorf("a roster holds at most %d players", engine.Slots)
var ErrClosed = errors.New("lobby closed")

const storeTimeout = 5 * time.Second

type Msg interface{ isLobbyMsg() }

// SetRoster replaces the roster. With Roll set the new roster is rolled right
// away, which is what submitting the form does.
type SetRoster struct {
	Players []engine.Player
	Roll    bool
	Reply   chan Result // optional
}

func (SetRoster) isLobbyMsg() {}

// Roll rolls the current roster again.
type Roll struct {
	Reply chan Result // optional
}

func (Roll) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type GetSnapshot struct {
	Reply chan Snapshot
}

func (GetSnapshot) isLobbyMsg() {}

type Snapshot struct {
	Version int
	Players []engine.Player
	Export  string
}

type View struct {
	Version    int
	NumClients int
	Players    []engine.Player
}

// Result answers SetRoster and Roll. Events is only set after a roll.
type Result struct {
	Snapshot Snapshot
	Events   []engine.Event
	Err      error
}

type Options struct {
	Key     string // store key, defaults to store.DefaultKey
	Store   store.Store
	Rand    engine.Rand
	Log     *zap.Logger
	Metrics *metrics.Metrics

	// IdleTimeout closes the lobby once it has had no clients and no
	// messages for that long. Zero keeps it open until shut down.
	IdleTimeout time.Duration
	// OnIdle runs after an idle lobby has stopped.
	OnIdle func(*Lobby)
}

// Lobby owns one roster. Everything that touches it runs on the lobby's own
// goroutine, so rolls and edits are applied one at a time.
type Lobby struct {
	inbox   chan Msg
	roster  []engine.Player
	version int
	clients map[string]chan Snapshot

	key     string
	store   store.Store
	rnd     engine.Rand
	log     *zap.Logger
	metrics *metrics.Metrics

	idleAfter time.Duration
	onIdle    func(*Lobby)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLobby(parent context.Context, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if opts.Key == "" {
		opts.Key = store.DefaultKey
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Rand == nil {
		opts.Rand = rng.Random()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64), // Small buffer
		roster:  []engine.Player{},
		clients: make(map[string]chan Snapshot),
		key:     opts.Key,
		store:   opts.Store,
		rnd:     opts.Rand,
		log:     opts.Log.With(zap.String("lobby", opts.Key)),
		metrics: opts.Metrics,

		idleAfter: opts.IdleTimeout,
		onIdle:    opts.OnIdle,

		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	l.metrics.LobbyOpened()
	go l.loop()
	return l
}

func (l *Lobby) loop() {
	idled := l.run()
	close(l.done)
	if idled && l.onIdle != nil {
		l.onIdle(l)
	}
}

// run processes messages until the lobby stops. It reports whether it
// stopped for being idle.
func (l *Lobby) run() bool {
	l.restore()

	var idle <-chan time.Time
	var timer *time.Timer
	if l.idleAfter > 0 {
		timer = time.NewTimer(l.idleAfter)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return false

		case <-idle:
			if len(l.clients) > 0 || len(l.inbox) > 0 {
				timer.Reset(l.idleAfter)
				continue
			}
			l.log.Info("closing idle lobby", zap.Duration("idle", l.idleAfter))
			l.shutdown()
			return true

		case m := <-l.inbox:
			if timer != nil {
				timer.Reset(l.idleAfter)
			}
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				l.send(msg.ClientID, msg.Outbox, l.snapshot())

			case Leave:
				delete(l.clients, msg.ClientID)

			case SetRoster:
				reply(msg.Reply, l.setRoster(msg.Players, msg.Roll))

			case Roll:
				reply(msg.Reply, l.roll(l.roster))

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Players:    clone(l.roster),
				}

			case GetSnapshot:
				msg.Reply <- l.snapshot()

			case Shutdown:
				l.shutdown()
				return false
			}
		}
	}
}

// restore loads the persisted roster. A failing store leaves the lobby empty
// rather than unusable.
func (l *Lobby) restore() {
	ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
	defer cancel()

	players, err := l.store.Load(ctx, l.key)
	if err != nil {
		l.metrics.StoreError("load")
		l.log.Error("failed to load roster", zap.Error(err))
		return
	}
	l.roster = players
	l.log.Debug("roster restored", zap.Int("players", len(players)))
}

func (l *Lobby) setRoster(players []engine.Player, roll bool) Result {
	if len(players) > engine.Slots {
		return Result{Err: ErrTooManyPlayers}
	}
	players = clone(players)
	if roll {
		// picks from the previous roll are about to be replaced
		for i := range players {
			players[i].Pick = ""
		}
	}
	if err := engine.CheckRoster(players); err != nil {
		return Result{Err: err}
	}
	if roll {
		return l.roll(players)
	}
	return l.commit(players, nil)
}

func (l *Lobby) roll(players []engine.Player) Result {
	events, rolled, err := engine.Roll(players, l.rnd)
	if err != nil {
		l.log.Error("roll failed", zap.Error(err))
		return Result{Err: err}
	}
	res := l.commit(rolled, events)
	if res.Err == nil {
		l.metrics.ObserveRoll(events, len(rolled))
		l.log.Info("rolled",
			zap.Int("version", l.version),
			zap.Int("players", len(rolled)),
			zap.Int("unfilled", len(engine.Unfilled(rolled))),
		)
	}
	return res
}

// commit persists players and, once the store accepted them, makes them the
// lobby's roster and tells every client.
func (l *Lobby) commit(players []engine.Player, events []engine.Event) Result {
	ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
	defer cancel()

	if err := l.store.Save(ctx, l.key, players); err != nil {
		l.metrics.StoreError("save")
		l.log.Error("failed to save roster", zap.Error(err))
		return Result{Err: fmt.Errorf("save roster: %w", err)}
	}

	l.roster = players
	l.version++
	snap := l.snapshot()
	l.broadcast(snap)
	return Result{Snapshot: snap, Events: events}
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{
		Version: l.version,
		Players: clone(l.roster),
		Export:  export.Format(l.roster),
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
	l.metrics.LobbyClosed()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		l.send(id, ch, snap)
	}
}

func (l *Lobby) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		//ok
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(l.clients, id)
		l.log.Debug("dropped slow client", zap.String("client", id))
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// do sends a message that carries a Reply channel and waits for the answer.
func (l *Lobby) do(ctx context.Context, msg Msg, replies chan Result) (Result, error) {
	res, err := ask(ctx, l, msg, replies)
	if err != nil {
		return Result{}, err
	}
	return res, res.Err
}

// Set replaces the roster, rolling it when roll is true.
func (l *Lobby) Set(ctx context.Context, players []engine.Player, roll bool) (Result, error) {
	replies := make(chan Result, 1)
	return l.do(ctx, SetRoster{Players: players, Roll: roll, Reply: replies}, replies)
}

// Reroll rolls the current roster.
func (l *Lobby) Reroll(ctx context.Context) (Result, error) {
	replies := make(chan Result, 1)
	return l.do(ctx, Roll{Reply: replies}, replies)
}

func (l *Lobby) State(ctx context.Context) (View, error) {
	replies := make(chan View, 1)
	return ask(ctx, l, GetState{Reply: replies}, replies)
}

// Current returns the snapshot a joining client would get.
func (l *Lobby) Current(ctx context.Context) (Snapshot, error) {
	replies := make(chan Snapshot, 1)
	return ask(ctx, l, GetSnapshot{Reply: replies}, replies)
}

func ask[T any](ctx context.Context, l *Lobby, msg Msg, replies chan T) (T, error) {
	var zero T
	select {
	case l.inbox <- msg:
	case <-l.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-replies:
		return v, nil
	case <-l.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func reply(ch chan Result, res Result) {
	if ch == nil {
		return
	}
	select {
	case ch <- res:
	default:
	}
}

func clone(players []engine.Player) []engine.Player {
	out := make([]engine.Player, len(players))
	for i, p := range players {
		out[i] = p.Clone()
	}
	return out
}
