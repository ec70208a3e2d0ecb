package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"contractrisk/internal/apiclient"
	"contractrisk/internal/app"
	"contractrisk/internal/session"
	"contractrisk/internal/transport/http/middleware"
	"contractrisk/internal/transport/http/view"
)

func render(c *gin.Context, status int, name, title string, data any) {
	sess := middleware.CurrentSession(c)
	c.HTML(status, name, view.Page{
		Title:    title,
		LoggedIn: sess.LoggedIn(),
		Notices:  sess.TakeNotices(),
		Data:     data,
	})
}

// fail reports err to the user. It returns true when it already wrote the
// response, which happens when the backend ended the session.
func fail(c *gin.Context, err error) bool {
	if r, ok := middleware.PendingRedirect(c); ok {
		render(c, http.StatusOK, "notice", "Session expired", view.NewRedirect(r.Path, r.After))
		return true
	}
	// The guard has already explained a 403.
	if !errors.Is(err, apiclient.ErrForbidden) {
		flash(c, session.NoticeError, app.UserMessage(err))
	}
	return false
}

func flash(c *gin.Context, level, message string) {
	middleware.CurrentSession(c).AddNotice(level, message)
}

// back redirects after a form post.
func back(c *gin.Context, path string) {
	c.Redirect(http.StatusSeeOther, path)
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "eqfield":
				return "Passwords do not match!"
			case "min":
				if fe.Field() == "Password" {
					return "Password must be at least 8 characters."
				}
			}
		}
	}
	return "Please fill in all required fields."
}
