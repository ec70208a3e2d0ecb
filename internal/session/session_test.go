package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSessionCredentialLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	s, err := Open(ctx, backend, "browser-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.LoggedIn() {
		t.Fatal("fresh session must not be logged in")
	}

	s.SetPendingLogin("alice")
	s.SetToken("abc123")
	if got := s.Token(); got != "abc123" {
		t.Fatalf("Token = %q", got)
	}
	if s.PendingLogin() != "" {
		t.Fatal("SetToken should finish the pending login step")
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(ctx, backend, "browser-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Token() != "abc123" {
		t.Fatalf("token not persisted, got %q", reopened.Token())
	}

	reopened.SetToken("def456")
	if reopened.Token() != "def456" {
		t.Fatal("a new credential replaces the old one")
	}

	reopened.Clear()
	if reopened.LoggedIn() {
		t.Fatal("Clear must remove the credential")
	}
	if err := reopened.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if backend.Len() != 0 {
		t.Fatalf("empty state should be deleted, backend holds %d", backend.Len())
	}
}

func TestSessionChatHandlesAreScoped(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewMemoryBackend(), "browser-2")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.SetChatHandle("contract-1", "H1")
	s.SetChatHandle(GeneralScope, "G1")
	s.SetChatHandle("contract-1", "H2")

	if got := s.ChatHandle("contract-1"); got != "H2" {
		t.Fatalf("contract-1 handle = %q, want H2", got)
	}
	if got := s.ChatHandle(GeneralScope); got != "G1" {
		t.Fatalf("general handle = %q, want G1", got)
	}

	s.ClearChatHandle("contract-1")
	if got := s.ChatHandle("contract-1"); got != "" {
		t.Fatalf("cleared handle still present: %q", got)
	}
	if got := s.ChatHandle(GeneralScope); got != "G1" {
		t.Fatalf("clearing one scope touched another: %q", got)
	}

	s.SetToken("tok")
	s.Clear()
	if got := s.ChatHandle(GeneralScope); got != "G1" {
		t.Fatal("credential clear must not drop chat handles")
	}
}

func TestSessionNoticesAreTakenOnce(t *testing.T) {
	s, err := Open(context.Background(), NewMemoryBackend(), "browser-3")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.AddNotice(NoticeError, "boom")
	s.AddNotice(NoticeSuccess, "ok")

	got := s.TakeNotices()
	if len(got) != 2 || got[0].Message != "boom" || got[1].Level != NoticeSuccess {
		t.Fatalf("unexpected notices: %+v", got)
	}
	if again := s.TakeNotices(); again != nil {
		t.Fatalf("notices should be consumed, got %+v", again)
	}
}

func TestSessionSaveSkipsCleanState(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s, err := Open(ctx, backend, "browser-4")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Dirty() {
		t.Fatal("freshly opened session should be clean")
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if backend.Len() != 0 {
		t.Fatal("clean session should not be written")
	}
}

func TestOpenRejectsBlankID(t *testing.T) {
	if _, err := Open(context.Background(), NewMemoryBackend(), "  "); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func openPair(t *testing.T, backend Backend, id string) (*Session, *Session) {
	t.Helper()
	a, err := Open(context.Background(), backend, id)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := Open(context.Background(), backend, id)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return a, b
}

func TestSaveDoesNotUndoConcurrentLogout(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	s, err := Open(ctx, backend, "browser-5")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.SetToken("abc123")
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	slow, logout := openPair(t, backend, "browser-5")
	logout.Clear()
	if err := logout.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	slow.SetChatHandle(GeneralScope, "conv-1")
	if err := slow.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	state, err := backend.Load(ctx, "browser-5")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state == nil || state.Token != "" {
		t.Fatalf("logged-out credential came back: %+v", state)
	}
	if state.ChatHandles[GeneralScope] != "conv-1" {
		t.Fatalf("slow request's handle lost: %+v", state.ChatHandles)
	}
}

func TestSaveKeepsClearedChatScope(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	if err := backend.Save(ctx, "browser-6", &State{
		Token:       "tok",
		ChatHandles: map[string]string{"c-1": "h-1", GeneralScope: "g-1"},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	slow, clearer := openPair(t, backend, "browser-6")
	clearer.ClearChatHandle("c-1")
	if err := clearer.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	slow.SetChatHandle("c-1", "h-2")
	slow.AddNotice(NoticeInfo, "answered")
	if err := slow.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	state, _ := backend.Load(ctx, "browser-6")
	if h, ok := state.ChatHandles["c-1"]; ok {
		t.Fatalf("cleared scope came back with %q", h)
	}
	if state.ChatHandles[GeneralScope] != "g-1" || state.Token != "tok" {
		t.Fatalf("untouched fields changed: %+v", state)
	}
	if len(state.Flash) != 1 {
		t.Fatalf("notice not merged: %+v", state.Flash)
	}
}

func TestStaleClearKeepsNewerLogin(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	if err := backend.Save(ctx, "browser-7", &State{Token: "old"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	expired, login := openPair(t, backend, "browser-7")
	login.SetToken("new")
	if err := login.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	expired.Clear()
	if err := expired.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	state, _ := backend.Load(ctx, "browser-7")
	if state == nil || state.Token != "new" {
		t.Fatalf("newer login was dropped: %+v", state)
	}
}

func TestTakeNoticesKeepsNoticesAddedElsewhere(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	if err := backend.Save(ctx, "browser-8", &State{Flash: []Notice{{Level: NoticeInfo, Message: "first"}}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	render, other := openPair(t, backend, "browser-8")
	other.AddNotice(NoticeError, "second")
	if err := other.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := render.TakeNotices(); len(got) != 1 || got[0].Message != "first" {
		t.Fatalf("unexpected notices %+v", got)
	}
	if err := render.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	state, _ := backend.Load(ctx, "browser-8")
	if state == nil || len(state.Flash) != 1 || state.Flash[0].Message != "second" {
		t.Fatalf("expected only the later notice to remain, got %+v", state)
	}
}

func TestOpenDiscardsUnreadableRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	path := filepath.Join(dir, "browser-9.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	if _, err := backend.Load(ctx, "browser-9"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("Load error = %v, want ErrCorruptState", err)
	}

	s, err := Open(ctx, backend, "browser-9")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Discarded() == nil {
		t.Fatal("expected the unreadable record to be reported")
	}
	if s.LoggedIn() {
		t.Fatal("discarded session must start empty")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("unreadable record should be deleted, stat err = %v", err)
	}

	s.SetToken("abc123")
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Open(ctx, backend, "browser-9")
	if err != nil || again.Discarded() != nil || again.Token() != "abc123" {
		t.Fatalf("reopen = (%v, %v)", again, err)
	}
}
