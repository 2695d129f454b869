package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/DoyleJ11/lol-pick/internal/engine"
)

// File keeps one JSON document per key inside a directory.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, strings.ReplaceAll(key, ":", ".")+".json")
}

func (f *File) Load(ctx context.Context, key string) ([]engine.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return []engine.Player{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", key, err)
	}
	return decode(data)
}

// Save writes to a temp file first so a crash never leaves half a roster.
func (f *File) Save(ctx context.Context, key string, players []engine.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encode(players)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".roster-*")
	if err != nil {
		return fmt.Errorf("save roster %s: %w", key, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save roster %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save roster %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("save roster %s: %w", key, err)
	}
	return nil
}
