package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"contractrisk/internal/session"
)

type fakeCreds struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (f *fakeCreds) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared++
}

type recordedRedirect struct {
	path  string
	after time.Duration
}

type fakeNotifier struct {
	notices   []string
	redirects []recordedRedirect
}

func (f *fakeNotifier) Notify(_ string, message string) {
	f.notices = append(f.notices, message)
}

func (f *fakeNotifier) ScheduleRedirect(path string, after time.Duration) {
	f.redirects = append(f.redirects, recordedRedirect{path: path, after: after})
}

func TestDoAttachesBearerOnlyWithCredential(t *testing.T) {
	var headers [][]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Values("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	creds := &fakeCreds{token: "abc123"}
	c := New(ts.URL+"/api", creds)
	if _, err := c.ListContracts(context.Background()); err != nil {
		t.Fatalf("ListContracts: %v", err)
	}
	creds.token = ""
	if _, err := c.ListContracts(context.Background()); err != nil {
		t.Fatalf("ListContracts: %v", err)
	}
	if _, err := New(ts.URL, nil).ListContracts(context.Background()); err != nil {
		t.Fatalf("ListContracts: %v", err)
	}

	if len(headers[0]) != 1 || headers[0][0] != "Bearer abc123" {
		t.Fatalf("expected exactly one bearer header, got %v", headers[0])
	}
	if len(headers[1]) != 0 || len(headers[2]) != 0 {
		t.Fatalf("expected no Authorization header without a credential, got %v / %v", headers[1], headers[2])
	}
}

func TestDoResolvesPathsAgainstBase(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"token":"t"}`))
	}))
	defer ts.Close()

	c := New(ts.URL+"/api/", nil)
	if _, err := c.VerifyLogin(context.Background(), "alice", "123456"); err != nil {
		t.Fatalf("VerifyLogin: %v", err)
	}
	if gotPath != "/api/auth/login/verify" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery != "otp=123456&username=alice" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestNormalizerMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusBadRequest, `{"message":"Username already taken"}`, "Username already taken"},
		{"error field fallback", http.StatusInternalServerError, `{"error":"model unavailable"}`, "model unavailable"},
		{"message wins over error", http.StatusBadRequest, `{"message":"X","error":"Bad Request"}`, "X"},
		{"plain text body", http.StatusBadRequest, `Invalid Username or Password`, GenericMessage},
		{"empty body", http.StatusInternalServerError, ``, GenericMessage},
		{"non-string message", http.StatusBadRequest, `{"message":42}`, GenericMessage},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, GenericMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			err := New(ts.URL, nil).Do(context.Background(), http.MethodGet, "/x", nil, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Fatalf("error = %q, want %q", err.Error(), tt.want)
			}
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrForbidden) {
				t.Fatal("only 401/403 carry a distinguishable kind")
			}
		})
	}
}

func TestTransportFailureIsGeneric(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	err := New(url, nil).Do(context.Background(), http.MethodGet, "/contracts", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != GenericMessage {
		t.Fatalf("error = %q", err.Error())
	}
	if !errors.Is(err, ErrTransport) {
		t.Fatal("expected ErrTransport")
	}
}

func TestCanceledContextSurfacesAsTransport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(ts.URL, nil).Do(ctx, http.MethodGet, "/x", nil, nil)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected transport error wrapping context.Canceled, got %v", err)
	}
}

func TestExpiryGuardOn401(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"JWT expired"}`))
	}))
	defer ts.Close()

	creds := &fakeCreds{token: "stale"}
	notifier := &fakeNotifier{}
	guard := NewExpiryGuard(creds, notifier, func() string { return "/dashboard" }, "/login", 1500*time.Millisecond)
	c := New(ts.URL, creds, WithResponseHook(guard))

	_, err := c.ListContracts(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if err.Error() != "JWT expired" {
		t.Fatalf("error = %q", err.Error())
	}
	if creds.Token() != "" || creds.cleared != 1 {
		t.Fatalf("credential should be cleared once, token=%q cleared=%d", creds.Token(), creds.cleared)
	}
	if len(notifier.redirects) != 1 || notifier.redirects[0].path != "/login" || notifier.redirects[0].after != 1500*time.Millisecond {
		t.Fatalf("unexpected redirects %+v", notifier.redirects)
	}
	if len(notifier.notices) != 1 || notifier.notices[0] != SessionExpiredMessage {
		t.Fatalf("unexpected notices %+v", notifier.notices)
	}
}

func TestExpiryGuardOnLoginViewDoesNotLoop(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Invalid Username or Password"))
	}))
	defer ts.Close()

	for _, view := range []string{"/login", "/login/verify"} {
		creds := &fakeCreds{token: "stale"}
		notifier := &fakeNotifier{}
		guard := NewExpiryGuard(creds, notifier, func() string { return view }, "/login", time.Second)
		c := New(ts.URL, creds, WithResponseHook(guard))

		_, err := c.Login(context.Background(), "alice", "wrong-password")
		if err == nil || err.Error() != GenericMessage {
			t.Fatalf("%s: unexpected error %v", view, err)
		}
		if creds.Token() != "" {
			t.Fatalf("%s: credential should still be cleared", view)
		}
		if len(notifier.redirects) != 0 || len(notifier.notices) != 0 {
			t.Fatalf("%s: no redirect or notice expected, got %+v %+v", view, notifier.redirects, notifier.notices)
		}
	}
}

func TestExpiryGuardLookalikeViewIsNotLogin(t *testing.T) {
	for _, view := range []string{"/loginhelp", "/login-faq", "/settings/login"} {
		creds := &fakeCreds{token: "stale"}
		notifier := &fakeNotifier{}
		guard := NewExpiryGuard(creds, notifier, func() string { return view }, "/login", time.Second)

		guard.OnFailure(http.StatusUnauthorized)

		if creds.Token() != "" {
			t.Fatalf("%s: credential should be cleared", view)
		}
		if len(notifier.redirects) != 1 || notifier.redirects[0].path != "/login" {
			t.Fatalf("%s: expected a login redirect, got %+v", view, notifier.redirects)
		}
		if len(notifier.notices) != 1 || notifier.notices[0] != SessionExpiredMessage {
			t.Fatalf("%s: expected the expiry notice, got %+v", view, notifier.notices)
		}
	}
}

func TestExpiryGuardOn403KeepsSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	creds := &fakeCreds{token: "valid"}
	notifier := &fakeNotifier{}
	guard := NewExpiryGuard(creds, notifier, func() string { return "/contracts/9" }, "/login", time.Second)
	c := New(ts.URL, creds, WithResponseHook(guard))

	_, err := c.GetContract(context.Background(), "9")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if creds.Token() != "valid" || creds.cleared != 0 {
		t.Fatal("403 must not change session state")
	}
	if len(notifier.notices) != 1 || notifier.notices[0] != PermissionDeniedMessage {
		t.Fatalf("unexpected notices %+v", notifier.notices)
	}
	if len(notifier.redirects) != 0 {
		t.Fatal("403 must not redirect")
	}
}

func TestLoginTokenIsUsedByNextCall(t *testing.T) {
	var lastAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/verify":
			_, _ = w.Write([]byte(`{"token":"abc123","message":"Login Successful"}`))
		case "/api/auth/profile":
			lastAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"username":"alice","email":"a@example.com","role":"USER"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	sess, err := session.Open(context.Background(), session.NewMemoryBackend(), "tab-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := New(ts.URL+"/api", sess)

	token, err := c.VerifyLogin(context.Background(), "alice", "123456")
	if err != nil {
		t.Fatalf("VerifyLogin: %v", err)
	}
	sess.SetToken(token)
	if sess.Token() != "abc123" {
		t.Fatalf("stored token = %q", sess.Token())
	}

	profile, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.Username != "alice" {
		t.Fatalf("profile = %+v", profile)
	}
	if lastAuth != "Bearer abc123" {
		t.Fatalf("Authorization = %q", lastAuth)
	}
}

func TestVerifyLoginWithoutToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Login Successful"}`))
	}))
	defer ts.Close()

	if _, err := New(ts.URL, nil).VerifyLogin(context.Background(), "a", "1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestChatSendsNullContractForGeneralScope(t *testing.T) {
	var bodies []map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		_, _ = w.Write([]byte(`{"response":"answer","conversationId":"conv-1"}`))
	}))
	defer ts.Close()

	c := New(ts.URL, nil)
	reply, err := c.Chat(context.Background(), "What is indemnity?", "", "")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Response != "answer" || reply.ConversationID != "conv-1" {
		t.Fatalf("reply = %+v", reply)
	}
	if _, err := c.Chat(context.Background(), "And here?", "c-42", "conv-1"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if v, ok := bodies[0]["contractId"]; !ok || v != nil {
		t.Fatalf("general chat should send contractId null, got %v (present=%v)", v, ok)
	}
	if bodies[1]["contractId"] != "c-42" || bodies[1]["conversationId"] != "conv-1" {
		t.Fatalf("unexpected body %v", bodies[1])
	}
}

func TestUploadContractSendsMultipartFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "nda.pdf" || string(data) != "%PDF-1.4 body" {
			t.Errorf("unexpected upload %q %q", header.Filename, data)
		}
		_, _ = w.Write([]byte(`{"id":"c-1","filename":"nda.pdf","uploadDate":"2026-10-16"}`))
	}))
	defer ts.Close()

	contract, err := New(ts.URL, nil).UploadContract(context.Background(), "nda.pdf", strings.NewReader("%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("UploadContract: %v", err)
	}
	if contract.ID != "c-1" {
		t.Fatalf("contract = %+v", contract)
	}
}

func TestDownloadReport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contracts/c%201/download-report" && r.URL.EscapedPath() != "/contracts/c%201/download-report" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-report"))
	}))
	defer ts.Close()

	var buf bytes.Buffer
	n, err := New(ts.URL, nil).DownloadReport(context.Background(), "c 1", &buf)
	if err != nil {
		t.Fatalf("DownloadReport: %v", err)
	}
	if n != int64(len("%PDF-report")) || buf.String() != "%PDF-report" {
		t.Fatalf("downloaded %d bytes: %q", n, buf.String())
	}
}

func TestDownloadReportFailureIsNormalized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Contract not found"}`))
	}))
	defer ts.Close()

	var buf bytes.Buffer
	_, err := New(ts.URL, nil).DownloadReport(context.Background(), "missing", &buf)
	if err == nil || err.Error() != "Contract not found" {
		t.Fatalf("unexpected error %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("nothing should be written on failure")
	}
}
