package apiclient

import (
	"net/http"
	"strings"
	"time"
)

const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelError   = "error"
)

const (
	SessionExpiredMessage   = "Session expired. Please login again."
	PermissionDeniedMessage = "You do not have permission to perform this action."
)

// Hook observes every failed response the dispatcher receives.
type Hook interface {
	OnFailure(status int)
}

// Notifier surfaces guard decisions to whatever is rendering the current view.
type Notifier interface {
	Notify(level, message string)
	ScheduleRedirect(path string, after time.Duration)
}

// ExpiryGuard moves a session from authenticated to unauthenticated when the
// backend rejects the credential, and reports permission failures.
type ExpiryGuard struct {
	creds       CredentialStore
	notifier    Notifier
	currentView func() string
	loginPath   string
	delay       time.Duration
}

func NewExpiryGuard(creds CredentialStore, notifier Notifier, currentView func() string, loginPath string, delay time.Duration) *ExpiryGuard {
	if loginPath == "" {
		loginPath = "/login"
	}
	if delay < 0 {
		delay = 0
	}
	return &ExpiryGuard{
		creds:       creds,
		notifier:    notifier,
		currentView: currentView,
		loginPath:   loginPath,
		delay:       delay,
	}
}

func (g *ExpiryGuard) OnFailure(status int) {
	switch status {
	case http.StatusUnauthorized:
		if g.creds != nil {
			g.creds.Clear()
		}
		// Already on the login view: redirecting again would loop.
		if g.onLoginView() {
			return
		}
		if g.notifier != nil {
			g.notifier.Notify(LevelError, SessionExpiredMessage)
			g.notifier.ScheduleRedirect(g.loginPath, g.delay)
		}
	case http.StatusForbidden:
		if g.notifier != nil {
			g.notifier.Notify(LevelError, PermissionDeniedMessage)
		}
	}
}

func (g *ExpiryGuard) onLoginView() bool {
	if g.currentView == nil {
		return false
	}
	view := g.currentView()
	return view == g.loginPath || strings.HasPrefix(view, strings.TrimRight(g.loginPath, "/")+"/")
}
