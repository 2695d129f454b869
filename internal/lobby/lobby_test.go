package lobby

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/lol-pick/internal/engine"
	"github.com/DoyleJ11/lol-pick/internal/rng"
	"github.com/DoyleJ11/lol-pick/internal/store"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func fiveFlex() []engine.Player {
	return []engine.Player{{Name: "P1"}, {Name: "P2"}, {Name: "P3"}, {Name: "P4"}, {Name: "P5"}}
}

type failingStore struct {
	store.Store
}

func (failingStore) Save(context.Context, string, []engine.Player) error {
	return errors.New("disk full")
}

func TestLobby_Join_SendsRestoredRoster(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory()
	saved := []engine.Player{{Name: "A", Pick: engine.RoleMid}}
	require.NoError(t, st.Save(ctx, store.Key("ZED123"), saved))

	l := NewLobby(ctx, Options{Key: store.Key("ZED123"), Store: st})

	out := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}

	first := recvSnapshot(t, out, 100*time.Millisecond)
	require.Equal(t, 0, first.Version)
	require.Equal(t, saved, first.Players)
	require.Contains(t, first.Export, "mid: A")
}

func TestLobby_SetRosterAndRoll_BroadcastsAndPersists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory()
	l := NewLobby(ctx, Options{Store: st, Rand: rng.NewSequence(0)})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	l.Inbox() <- SetRoster{Players: fiveFlex(), Roll: true}

	next := recvSnapshot(t, out, 100*time.Millisecond)
	require.Equal(t, 1, next.Version)
	want := []engine.Role{engine.RoleTop, engine.RoleJungle, engine.RoleMid, engine.RoleADC, engine.RoleSupport}
	for i, p := range next.Players {
		require.Equal(t, want[i], p.Pick)
	}
	require.Equal(t, "    top: P1\n jungle: P2\n    mid: P3\n    adc: P4\nsupport: P5", next.Export)

	persisted, err := st.Load(ctx, store.DefaultKey)
	require.NoError(t, err)
	require.Equal(t, next.Players, persisted)
}

func TestLobby_SetWithoutRoll_KeepsPicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, Options{Rand: rng.NewSequence(0)})

	res, err := l.Set(ctx, []engine.Player{{Name: "A", Pick: engine.RoleTop}}, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Snapshot.Version)
	require.Nil(t, res.Events)
	require.Equal(t, engine.RoleTop, res.Snapshot.Players[0].Pick)
}

func TestLobby_SetRejectsInvalidPicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory()
	l := NewLobby(ctx, Options{Store: st, Rand: rng.NewSequence(0)})

	cases := []struct {
		name    string
		players []engine.Player
	}{
		{
			name:    "declined pick",
			players: []engine.Player{{Name: "A", Roles: engine.Except(engine.RoleTop), Pick: engine.RoleTop}},
		},
		{
			name:    "duplicate pick",
			players: []engine.Player{{Name: "A", Pick: engine.RoleTop}, {Name: "B", Pick: engine.RoleTop}},
		},
		{
			name:    "unknown pick",
			players: []engine.Player{{Name: "C", Pick: "feeder"}},
		},
		{
			name:    "unknown eligibility key",
			players: []engine.Player{{Name: "C", Roles: engine.Eligibility{"bogus": nil}}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Set(ctx, tc.players, false)
			require.ErrorIs(t, err, engine.ErrInvalidRoster)
		})
	}

	view, err := l.State(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, view.Version)
	saved, err := st.Load(ctx, store.DefaultKey)
	require.NoError(t, err)
	require.Empty(t, saved)
}

func TestLobby_SetWithRoll_IgnoresStalePicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, Options{Rand: rng.NewSequence(0)})

	// both still carry top from some earlier roll; rolling replaces that
	res, err := l.Set(ctx, []engine.Player{
		{Name: "A", Roles: engine.Only(engine.RoleTop), Pick: engine.RoleTop},
		{Name: "B", Pick: engine.RoleTop},
	}, true)
	require.NoError(t, err)
	require.Equal(t, engine.RoleTop, res.Snapshot.Players[0].Pick)
	require.Equal(t, engine.RoleJungle, res.Snapshot.Players[1].Pick)

	_, err = l.Set(ctx, []engine.Player{{Name: "A", Roles: engine.Eligibility{"bogus": nil}}}, true)
	require.ErrorIs(t, err, engine.ErrInvalidRoster)
}

func TestLobby_Reroll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, Options{Rand: rng.NewSequence(4)})
	_, err := l.Set(ctx, fiveFlex(), false)
	require.NoError(t, err)

	res, err := l.Reroll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Snapshot.Version)
	require.Len(t, res.Events, len(engine.Roles()))
	require.Equal(t, engine.RoleTop, res.Snapshot.Players[4].Pick)

	view, err := l.State(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, view.Version)
	require.Equal(t, res.Snapshot.Players, view.Players)
}

func TestLobby_TooManyPlayers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, Options{})
	players := append(fiveFlex(), engine.Player{Name: "P6"})

	_, err := l.Set(ctx, players, true)
	require.ErrorIs(t, err, ErrTooManyPlayers)

	view, err := l.State(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, view.Version)
}

func TestLobby_StoreFailure_LeavesStateAlone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, Options{Store: failingStore{store.NewMemory()}})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	_, err := l.Set(ctx, fiveFlex(), true)
	require.Error(t, err)
	recvNoSnapshot(t, out, 100*time.Millisecond)

	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	require.Equal(t, 0, view.Version)
	require.Empty(t, view.Players)
}

func TestLobby_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, Options{})

	clientOut := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	l.Inbox() <- SetRoster{Players: fiveFlex(), Roll: true}

	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)

	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}

func TestLobby_Leave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, Options{})
	out := make(chan Snapshot, 4)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	l.Inbox() <- Leave{ClientID: "c1"}

	_, err := l.Reroll(ctx)
	require.NoError(t, err)
	recvNoSnapshot(t, out, 100*time.Millisecond)
}

func TestLobby_Shutdown_ClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, Options{})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 500*time.Millisecond) // drain join snapshot

	l.Inbox() <- Shutdown{}

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop")
	}
	_, ok := <-out
	require.False(t, ok, "outbox should be closed")

	_, err := l.Reroll(ctx)
	require.ErrorIs(t, err, ErrClosed)
	_, err = l.State(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestLobby_IdleTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idled := make(chan *Lobby, 1)
	l := NewLobby(ctx, Options{
		IdleTimeout: 20 * time.Millisecond,
		OnIdle:      func(lb *Lobby) { idled <- lb },
	})

	select {
	case lb := <-idled:
		require.Same(t, l, lb)
	case <-time.After(time.Second):
		t.Fatal("idle lobby kept running")
	}
	select {
	case <-l.Done():
	default:
		t.Fatal("OnIdle ran before the lobby stopped")
	}
}

func TestLobby_IdleTimeout_StaysOpenWithClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idled := make(chan *Lobby, 1)
	l := NewLobby(ctx, Options{
		IdleTimeout: 20 * time.Millisecond,
		OnIdle:      func(lb *Lobby) { idled <- lb },
	})
	out := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	select {
	case <-idled:
		t.Fatal("lobby with a client closed as idle")
	case <-time.After(100 * time.Millisecond):
	}

	l.Inbox() <- Leave{ClientID: "c1"}
	select {
	case <-idled:
	case <-time.After(time.Second):
		t.Fatal("lobby stayed open after its last client left")
	}
}

func TestLobby_ShutdownIsNotIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	called := make(chan struct{}, 1)
	l := NewLobby(ctx, Options{
		IdleTimeout: time.Hour,
		OnIdle:      func(*Lobby) { called <- struct{}{} },
	})
	cancel()
	<-l.Done()

	select {
	case <-called:
		t.Fatal("OnIdle ran for a cancelled lobby")
	case <-time.After(50 * time.Millisecond):
	}
}
