package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"contractrisk/internal/apiclient"
	"contractrisk/internal/session"
)

// ClientOptions configure the per-request backend client.
type ClientOptions struct {
	BaseURL       string
	HTTPClient    *http.Client
	LoginPath     string
	RedirectDelay time.Duration
	// OnExpired runs once when the backend rejects the session's credential.
	OnExpired func(ctx context.Context, sessionID string)
}

// Redirect is a navigation the expiry guard asked for.
type Redirect struct {
	Path  string
	After time.Duration
}

// ViewNotifier turns guard decisions into flash notices and a pending redirect for
// the page being rendered.
type ViewNotifier struct {
	ctx       context.Context
	sess      *session.Session
	onExpired func(ctx context.Context, sessionID string)

	mu       sync.Mutex
	redirect *Redirect
}

func (n *ViewNotifier) Notify(level, message string) {
	n.sess.AddNotice(level, message)
}

func (n *ViewNotifier) ScheduleRedirect(path string, after time.Duration) {
	n.mu.Lock()
	first := n.redirect == nil
	n.redirect = &Redirect{Path: path, After: after}
	n.mu.Unlock()
	if first && n.onExpired != nil {
		n.onExpired(n.ctx, n.sess.ID())
	}
}

func (n *ViewNotifier) Pending() (Redirect, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.redirect == nil {
		return Redirect{}, false
	}
	return *n.redirect, true
}

// APIClient builds a backend client bound to the request's session and guarded by
// an apiclient.ExpiryGuard.
func APIClient(opts ClientOptions) gin.HandlerFunc {
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		notifier := &ViewNotifier{ctx: c.Request.Context(), sess: sess, onExpired: opts.OnExpired}
		view := c.Request.URL.Path
		guard := apiclient.NewExpiryGuard(sess, notifier, func() string { return view }, loginPath, opts.RedirectDelay)

		clientOpts := []apiclient.Option{apiclient.WithResponseHook(guard)}
		if opts.HTTPClient != nil {
			clientOpts = append(clientOpts, apiclient.WithHTTPClient(opts.HTTPClient))
		}
		c.Set(ContextClientKey, apiclient.New(opts.BaseURL, sess, clientOpts...))
		c.Set(ContextNotifierKey, notifier)
		c.Next()
	}
}

func CurrentClient(c *gin.Context) *apiclient.Client {
	return c.MustGet(ContextClientKey).(*apiclient.Client)
}

// PendingRedirect reports a redirect scheduled during this request, if any.
func PendingRedirect(c *gin.Context) (Redirect, bool) {
	v, ok := c.Get(ContextNotifierKey)
	if !ok {
		return Redirect{}, false
	}
	return v.(*ViewNotifier).Pending()
}
