package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"contractrisk/internal/app"
	"contractrisk/internal/session"
	"contractrisk/internal/transport/http/middleware"
)

type AuthHandler struct {
	authService *app.AuthService
	oauthURL    string
}

type loginForm struct {
	Username string `form:"username" binding:"required,max=64"`
	Password string `form:"password" binding:"required,max=128"`
}

type otpForm struct {
	OTP string `form:"otp" binding:"required"`
}

type registerForm struct {
	Username        string `form:"username" binding:"required,max=64"`
	Email           string `form:"email" binding:"required,max=128"`
	Password        string `form:"password" binding:"required,min=8,max=128"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}

type completeForm struct {
	Email     string `form:"email" binding:"required"`
	TempToken string `form:"temp_token" binding:"required"`
	Username  string `form:"username" binding:"required,max=64"`
	Password  string `form:"password" binding:"required,max=128"`
}

type emailForm struct {
	Email string `form:"email" binding:"required"`
}

type resetForm struct {
	Password        string `form:"password" binding:"required,min=8,max=128"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}

type loginPage struct {
	PendingUser string
	OAuthURL    string
}

type registerPage struct {
	Username string
	Email    string
	OAuthURL string
}

type resetPage struct {
	Step     string
	Email    string
	ResendIn int
}

func NewAuthHandler(authService *app.AuthService, oauthURL string) *AuthHandler {
	return &AuthHandler{authService: authService, oauthURL: oauthURL}
}

func (h *AuthHandler) Home(c *gin.Context) {
	render(c, http.StatusOK, "home", "Home", nil)
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess.LoggedIn() {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	render(c, http.StatusOK, "login", "Sign in", loginPage{
		PendingUser: sess.PendingLogin(),
		OAuthURL:    h.oauthURL,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, session.NoticeError, bindMessage(err))
		back(c, "/login")
		return
	}
	err := h.authService.StartLogin(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c), form.Username, form.Password)
	if err != nil {
		if !fail(c, err) {
			back(c, "/login")
		}
		return
	}
	flash(c, session.NoticeSuccess, "OTP sent to your email!")
	back(c, "/login")
}

func (h *AuthHandler) VerifyLogin(c *gin.Context) {
	var form otpForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, session.NoticeError, bindMessage(err))
		back(c, "/login")
		return
	}
	err := h.authService.VerifyLogin(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c), form.OTP)
	if err != nil {
		if !fail(c, err) {
			back(c, "/login")
		}
		return
	}
	flash(c, session.NoticeSuccess, "Login Successful!")
	back(c, "/dashboard")
}

func (h *AuthHandler) CancelLogin(c *gin.Context) {
	h.authService.CancelLogin(middleware.CurrentSession(c))
	back(c, "/login")
}

func (h *AuthHandler) RegisterPage(c *gin.Context) {
	render(c, http.StatusOK, "register", "Register", registerPage{OAuthURL: h.oauthURL})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, session.NoticeError, bindMessage(err))
		render(c, http.StatusUnprocessableEntity, "register", "Register", registerPage{
			Username: form.Username, Email: form.Email, OAuthURL: h.oauthURL,
		})
		return
	}
	err := h.authService.Register(c.Request.Context(), middleware.CurrentClient(c), app.RegisterInput{
		Username:        form.Username,
		Email:           form.Email,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
	})
	if err != nil {
		if fail(c, err) {
			return
		}
		render(c, http.StatusUnprocessableEntity, "register", "Register", registerPage{
			Username: form.Username, Email: form.Email, OAuthURL: h.oauthURL,
		})
		return
	}
	flash(c, session.NoticeSuccess, "Registration Successful! Please Login.")
	back(c, "/login")
}

func (h *AuthHandler) CompleteRegistrationPage(c *gin.Context) {
	draft, err := h.authService.OAuthDraft(c.Query("email"), c.Query("name"), c.Query("tempToken"))
	if err != nil {
		flash(c, session.NoticeError, app.UserMessage(err))
		c.Redirect(http.StatusFound, "/login")
		return
	}
	render(c, http.StatusOK, "complete_registration", "Finalize account", draft)
}

func (h *AuthHandler) CompleteRegistration(c *gin.Context) {
	var form completeForm
	bindErr := c.ShouldBind(&form)
	draft := &app.OAuthDraft{Email: form.Email, Username: form.Username, Password: form.Password, TempToken: form.TempToken}
	if bindErr != nil {
		flash(c, session.NoticeError, bindMessage(bindErr))
		render(c, http.StatusUnprocessableEntity, "complete_registration", "Finalize account", draft)
		return
	}
	err := h.authService.CompleteOAuth(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c), app.OAuthInput{
		Email:     form.Email,
		Username:  form.Username,
		Password:  form.Password,
		TempToken: form.TempToken,
	})
	if err != nil {
		if fail(c, err) {
			return
		}
		render(c, http.StatusUnprocessableEntity, "complete_registration", "Finalize account", draft)
		return
	}
	flash(c, session.NoticeSuccess, "Account Created! Welcome to the Dashboard.")
	back(c, "/dashboard")
}

func (h *AuthHandler) ForgotPasswordPage(c *gin.Context) {
	page := resetPage{Step: "email"}
	if flow := middleware.CurrentSession(c).Reset(); flow != nil {
		page.Email = flow.Email
		page.Step = "otp"
		if flow.Verified {
			page.Step = "reset"
		}
		left := h.authService.ResendIn(flow)
		page.ResendIn = int((left + time.Second - 1) / time.Second)
	}
	render(c, http.StatusOK, "forgot_password", "Reset password", page)
}

func (h *AuthHandler) SendResetOTP(c *gin.Context) {
	var form emailForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, session.NoticeError, bindMessage(err))
		back(c, "/forgot-password")
		return
	}
	err := h.authService.SendResetOTP(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c), form.Email)
	if err != nil {
		if !fail(c, err) {
			back(c, "/forgot-password")
		}
		return
	}
	flash(c, session.NoticeSuccess, "OTP sent to your email.")
	back(c, "/forgot-password")
}

func (h *AuthHandler) VerifyResetOTP(c *gin.Context) {
	var form otpForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, session.NoticeError, bindMessage(err))
		back(c, "/forgot-password")
		return
	}
	err := h.authService.VerifyResetOTP(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c), form.OTP)
	if err != nil {
		if !fail(c, err) {
			back(c, "/forgot-password")
		}
		return
	}
	flash(c, session.NoticeSuccess, "OTP Verified!")
	back(c, "/forgot-password")
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var form resetForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, session.NoticeError, bindMessage(err))
		back(c, "/forgot-password")
		return
	}
	err := h.authService.ResetPassword(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c), form.Password, form.ConfirmPassword)
	if err != nil {
		if !fail(c, err) {
			back(c, "/forgot-password")
		}
		return
	}
	flash(c, session.NoticeSuccess, "Password Reset Successful! Please Login.")
	back(c, "/login")
}

func (h *AuthHandler) RestartReset(c *gin.Context) {
	middleware.CurrentSession(c).SetReset(nil)
	back(c, "/forgot-password")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.authService.Logout(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c))
	back(c, "/")
}
