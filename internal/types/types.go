package types

import (
	"github.com/DoyleJ11/lol-pick/internal/engine"
	"github.com/DoyleJ11/lol-pick/internal/lobby"
)

type ClientMessage struct {
	Type    string          `json:"type"` // "SetRoster" | "Roll"
	Players []engine.Player `json:"players,omitempty"`
	Roll    bool            `json:"roll,omitempty"` // SetRoster only: roll right after
}

type ServerMessage struct {
	Type  string `json:"type"` // "StateSnapshot" | "Error"
	State *State `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// State is what both the HTTP API and the websocket send back for a lobby.
type State struct {
	Version int             `json:"version"`
	Players []engine.Player `json:"players"`
	Export  string          `json:"export"`
	Events  []engine.Event  `json:"events,omitempty"`
}

type RosterRequest struct {
	Players []engine.Player `json:"players"`
	Roll    bool            `json:"roll,omitempty"`
}

func FromSnapshot(snap lobby.Snapshot) State {
	return State{Version: snap.Version, Players: snap.Players, Export: snap.Export}
}

func FromResult(res lobby.Result) State {
	s := FromSnapshot(res.Snapshot)
	s.Events = res.Events
	return s
}
