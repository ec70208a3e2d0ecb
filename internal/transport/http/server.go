package http

import (
	"fmt"
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	appsvc "contractrisk/internal/app"
	"contractrisk/internal/bootstrap"
	"contractrisk/internal/session"
	"contractrisk/internal/transport/http/handler"
	"contractrisk/internal/transport/http/middleware"
	"contractrisk/internal/transport/http/view"
)

const loginPath = "/login"

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = cfg.Upload.MaxBytes

	templates, err := view.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates failed: %w", err)
	}
	router.SetHTMLTemplate(templates)

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	authService := appsvc.NewAuthService(app.Events, app.Logger)
	contractService := appsvc.NewContractService(cfg.Upload.MaxBytes)
	chatService := appsvc.NewChatService()
	accountService := appsvc.NewAccountService()

	authHandler := handler.NewAuthHandler(authService, cfg.OAuthStartURL())
	contractHandler := handler.NewContractHandler(contractService)
	chatHandler := handler.NewChatHandler(chatService)
	settingsHandler := handler.NewSettingsHandler(authService, accountService)

	web := router.Group("/")
	web.Use(
		middleware.Sessions(middleware.SessionOptions{
			Backend:    app.Sessions,
			Codec:      session.NewCookieCodec(cfg.Session.CookieSecret),
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.CookieSecure,
			MaxAge:     int(cfg.SessionTTL().Seconds()),
			Logger:     app.Logger,
		}),
		middleware.APIClient(middleware.ClientOptions{
			BaseURL:       cfg.APIBaseURL(),
			HTTPClient:    &nethttp.Client{Timeout: cfg.BackendTimeout()},
			LoginPath:     loginPath,
			RedirectDelay: cfg.RedirectDelay(),
			OnExpired:     authService.SessionExpired,
		}),
	)

	web.GET("/", authHandler.Home)
	web.GET("/login", authHandler.LoginPage)
	web.POST("/login", authHandler.Login)
	web.POST("/login/verify", authHandler.VerifyLogin)
	web.POST("/login/cancel", authHandler.CancelLogin)
	web.GET("/register", authHandler.RegisterPage)
	web.POST("/register", authHandler.Register)
	web.GET("/complete-registration", authHandler.CompleteRegistrationPage)
	web.POST("/complete-registration", authHandler.CompleteRegistration)
	web.GET("/forgot-password", authHandler.ForgotPasswordPage)
	web.POST("/forgot-password/send-otp", authHandler.SendResetOTP)
	web.POST("/forgot-password/verify-otp", authHandler.VerifyResetOTP)
	web.POST("/forgot-password/reset", authHandler.ResetPassword)
	web.POST("/forgot-password/restart", authHandler.RestartReset)
	web.POST("/logout", authHandler.Logout)

	protected := web.Group("/")
	protected.Use(middleware.RequireCredential(loginPath))
	protected.GET("/dashboard", contractHandler.Dashboard)
	protected.POST("/contracts/upload", contractHandler.Upload)
	protected.GET("/contracts/:id", contractHandler.Details)
	protected.GET("/contracts/:id/report", contractHandler.Report)
	protected.POST("/contracts/:id/delete", contractHandler.Delete)
	protected.GET("/chat/:scope", chatHandler.Page)
	protected.POST("/chat/:scope", chatHandler.Send)
	protected.POST("/chat/:scope/ask", chatHandler.Ask)
	protected.POST("/chat/:scope/clear", chatHandler.Clear)
	protected.GET("/settings", settingsHandler.Page)
	protected.POST("/settings/delete-account", settingsHandler.DeleteAccount)
	protected.POST("/settings/payment/order", settingsHandler.CreateOrder)
	protected.POST("/settings/payment/verify", settingsHandler.VerifyPayment)

	return router, nil
}
