package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"contractrisk/internal/session"
)

const (
	ContextSessionKey  = "session"
	ContextClientKey   = "api_client"
	ContextNotifierKey = "view_notifier"
)

type SessionOptions struct {
	Backend    session.Backend
	Codec      *session.CookieCodec
	CookieName string
	Secure     bool
	MaxAge     int
	Logger     *slog.Logger
}

// Sessions attaches the browser's session to the request and writes it back once
// the handler chain is done.
func Sessions(opts SessionOptions) gin.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		id := ""
		cookie, err := c.Cookie(opts.CookieName)
		if err == nil {
			id, err = opts.Codec.Decode(cookie)
		}
		if err != nil {
			id = session.NewID()
			cookie, err = opts.Codec.Encode(id)
			if err != nil {
				logger.Error("seal session cookie failed", "error", err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(opts.CookieName, cookie, opts.MaxAge, "/", "", opts.Secure, true)

		sess, err := session.Open(c.Request.Context(), opts.Backend, id)
		if err != nil {
			logger.Error("open session failed", "error", err)
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		if derr := sess.Discarded(); derr != nil {
			logger.Warn("discarded unreadable session", "session_id", id, "error", derr)
		}
		c.Set(ContextSessionKey, sess)

		c.Next()

		// Persist even when the browser has already gone away.
		if err := sess.Save(context.WithoutCancel(c.Request.Context())); err != nil {
			logger.Error("save session failed", "session_id", sess.ID(), "error", err)
		}
	}
}

// CurrentSession returns the request's session. It panics when Sessions is not
// installed, which is a wiring bug.
func CurrentSession(c *gin.Context) *session.Session {
	return c.MustGet(ContextSessionKey).(*session.Session)
}

// RequireCredential keeps protected views away from browsers without a credential.
// Nothing is sent to the backend in that case.
func RequireCredential(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSession(c).LoggedIn() {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}
