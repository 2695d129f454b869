package store

import (
	"context"
	"sync"

	"github.com/DoyleJ11/lol-pick/internal/engine"
)

type Memory struct {
	mu      sync.Mutex
	rosters map[string][]engine.Player
}

func NewMemory() *Memory {
	return &Memory{rosters: make(map[string][]engine.Player)}
}

func (m *Memory) Load(ctx context.Context, key string) ([]engine.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.rosters[key]), nil
}

func (m *Memory) Save(ctx context.Context, key string, players []engine.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rosters[key] = clone(players)
	return nil
}
