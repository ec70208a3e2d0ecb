package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// FileBackend stores one JSON document per session id in a directory. Updates are
// serialized within the process.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory failed: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Load(_ context.Context, id string) (*State, error) {
	path, err := b.path(id)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file failed: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal session file failed: %w: %w", ErrCorruptState, err)
	}
	return &st, nil
}

func (b *FileBackend) Save(_ context.Context, id string, state *State) error {
	path, err := b.path(id)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.write(path, state)
}

func (b *FileBackend) Update(ctx context.Context, id string, fn func(*State)) error {
	path, err := b.path(id)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	st, err := b.Load(ctx, id)
	if errors.Is(err, ErrCorruptState) {
		st, err = nil, nil
	}
	if err != nil {
		return err
	}
	if st == nil {
		st = &State{}
	}
	fn(st)
	if st.Empty() {
		return b.remove(path)
	}
	return b.write(path, st)
}

func (b *FileBackend) write(path string, state *State) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file failed: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close session file failed: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file failed: %w", err)
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, id string) error {
	path, err := b.path(id)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remove(path)
}

func (b *FileBackend) remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file failed: %w", err)
	}
	return nil
}

func (b *FileBackend) path(id string) (string, error) {
	if !fileIDPattern.MatchString(id) || id == "." || id == ".." {
		return "", ErrInvalidID
	}
	return filepath.Join(b.dir, id+".json"), nil
}
