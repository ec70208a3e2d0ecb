// Package session holds the per-browser credential and chat continuation handles,
// persisted through a pluggable Backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrInvalidID = errors.New("invalid session id")
	// ErrCorruptState marks stored state that exists but cannot be decoded.
	ErrCorruptState = errors.New("corrupt session state")
)

// Backend persists session state by id. Load returns (nil, nil) for unknown ids and
// an error wrapping ErrCorruptState for records it cannot decode.
type Backend interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, id string, state *State) error
	// Update runs fn against the freshest stored state (empty when the record is
	// missing or unreadable) and stores the result atomically. An emptied state is
	// deleted. fn may run more than once.
	Update(ctx context.Context, id string, fn func(*State)) error
	Delete(ctx context.Context, id string) error
}

// Session is the session service for one browser context. The credential it holds
// is the only signal used to decide whether a user is logged in.
//
// Mutations apply to the local view immediately and are recorded as changes. Save
// replays only those changes onto the stored state, so concurrent requests from the
// same browser never overwrite fields they did not touch.
type Session struct {
	mu        sync.Mutex
	id        string
	backend   Backend
	state     *State
	changes   []func(*State)
	discarded error
}

// Open loads the session for id, starting from an empty state when none is stored.
// An unreadable record is deleted and replaced by an empty state; Discarded reports it.
func Open(ctx context.Context, backend Backend, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}
	state, err := backend.Load(ctx, id)
	var discarded error
	if errors.Is(err, ErrCorruptState) {
		if derr := backend.Delete(ctx, id); derr != nil {
			return nil, fmt.Errorf("discard unreadable session failed: %w", derr)
		}
		discarded, state, err = err, nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session failed: %w", err)
	}
	if state == nil {
		state = &State{}
	}
	return &Session{id: id, backend: backend, state: state, discarded: discarded}, nil
}

func (s *Session) ID() string { return s.id }

// Discarded returns the decode error of a stored record Open threw away, or nil.
func (s *Session) Discarded() error { return s.discarded }

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// SetToken replaces the stored credential; at most one is held at a time.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Token = token
	s.state.PendingLogin = ""
	s.record(func(st *State) {
		st.Token = token
		st.PendingLogin = ""
	})
}

// Clear drops the credential and any in-flight login or reset step.
// Chat continuation handles survive; they are only removed by ClearChatHandle.
// Only the credential this session saw is dropped from the store; a newer login
// made by another request is left alone.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Token == "" && s.state.PendingLogin == "" && s.state.Reset == nil {
		return
	}
	held := s.state.Token
	s.state.Token = ""
	s.state.PendingLogin = ""
	s.state.Reset = nil
	s.record(func(st *State) {
		if st.Token == held {
			st.Token = ""
		}
		st.PendingLogin = ""
		st.Reset = nil
	})
}

func (s *Session) ChatHandle(scope string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ChatHandles[scope]
}

// SetChatHandle stores the handle for scope. The stored handle is only replaced
// while it still equals the one this session started from, so a scope cleared
// in the meantime stays cleared.
func (s *Session) SetChatHandle(scope, handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handle == "" {
		return
	}
	prev := s.state.ChatHandles[scope]
	if prev == handle {
		return
	}
	setHandle(s.state, scope, handle)
	s.record(func(st *State) {
		if st.ChatHandles[scope] != prev {
			return
		}
		setHandle(st, scope, handle)
	})
}

func (s *Session) ClearChatHandle(scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.ChatHandles[scope]; !ok {
		return
	}
	delete(s.state.ChatHandles, scope)
	s.record(func(st *State) {
		delete(st.ChatHandles, scope)
	})
}

func (s *Session) AddNotice(level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := Notice{Level: level, Message: message}
	s.state.Flash = append(s.state.Flash, n)
	s.record(func(st *State) {
		st.Flash = append(st.Flash, n)
	})
}

// TakeNotices returns pending notices and forgets them.
func (s *Session) TakeNotices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.Flash) == 0 {
		return nil
	}
	out := s.state.Flash
	s.state.Flash = nil
	taken := append([]Notice(nil), out...)
	s.record(func(st *State) {
		st.Flash = dropNotices(st.Flash, taken)
	})
	return out
}

func (s *Session) PendingLogin() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PendingLogin
}

func (s *Session) SetPendingLogin(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PendingLogin = username
	s.record(func(st *State) {
		st.PendingLogin = username
	})
}

// Reset returns a copy of the forgot-password step state, or nil.
func (s *Session) Reset() *ResetFlow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Reset == nil {
		return nil
	}
	r := *s.state.Reset
	return &r
}

func (s *Session) SetReset(flow *ResetFlow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored *ResetFlow
	if flow != nil {
		r := *flow
		stored = &r
	}
	s.state.Reset = stored
	s.record(func(st *State) {
		if stored == nil {
			st.Reset = nil
			return
		}
		r := *stored
		st.Reset = &r
	})
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changes) > 0
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Save applies the recorded changes to the stored state. Fields this session did
// not change keep whatever other requests wrote in the meantime.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	pending := s.changes
	s.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	err := s.backend.Update(ctx, s.id, func(st *State) {
		for _, apply := range pending {
			apply(st)
		}
	})
	if err != nil {
		return fmt.Errorf("save session failed: %w", err)
	}

	s.mu.Lock()
	s.changes = s.changes[len(pending):]
	if len(s.changes) == 0 {
		s.changes = nil
	}
	s.mu.Unlock()
	return nil
}

// record must be called with s.mu held.
func (s *Session) record(change func(*State)) {
	s.changes = append(s.changes, change)
}

func setHandle(st *State, scope, handle string) {
	if st.ChatHandles == nil {
		st.ChatHandles = make(map[string]string)
	}
	st.ChatHandles[scope] = handle
}

// dropNotices removes one occurrence of each taken notice, keeping notices other
// requests added.
func dropNotices(flash, taken []Notice) []Notice {
	if len(flash) == 0 {
		return nil
	}
	out := make([]Notice, 0, len(flash))
	remaining := append([]Notice(nil), taken...)
	for _, n := range flash {
		matched := false
		for i, t := range remaining {
			if t == n {
				remaining = append(remaining[:i], remaining[i+1:]...)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
