package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"contractrisk/internal/apiclient"
	"contractrisk/internal/app"
	"contractrisk/internal/model"
	"contractrisk/internal/session"
	"contractrisk/internal/transport/http/middleware"
)

type SettingsHandler struct {
	authService    *app.AuthService
	accountService *app.AccountService
}

type settingsPage struct {
	Profile *model.Profile
	Usage   *model.Usage
	Order   *model.PaymentOrder
}

type deleteAccountForm struct {
	Password string `form:"password" binding:"required"`
}

type orderForm struct {
	Amount int `form:"amount" binding:"required,gt=0"`
}

type paymentForm struct {
	PaymentID string `form:"razorpay_payment_id" binding:"required"`
	OrderID   string `form:"razorpay_order_id" binding:"required"`
	Signature string `form:"razorpay_signature" binding:"required"`
	Amount    string `form:"amount"`
}

func NewSettingsHandler(authService *app.AuthService, accountService *app.AccountService) *SettingsHandler {
	return &SettingsHandler{authService: authService, accountService: accountService}
}

func (h *SettingsHandler) Page(c *gin.Context) {
	h.renderPage(c, nil)
}

func (h *SettingsHandler) DeleteAccount(c *gin.Context) {
	var form deleteAccountForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, session.NoticeError, "Enter your password to confirm.")
		back(c, "/settings")
		return
	}
	err := h.authService.DeleteAccount(c.Request.Context(), middleware.CurrentSession(c), middleware.CurrentClient(c), form.Password)
	if err != nil {
		if !fail(c, err) {
			back(c, "/settings")
		}
		return
	}
	flash(c, session.NoticeSuccess, "Account deleted successfully.")
	back(c, "/login")
}

func (h *SettingsHandler) CreateOrder(c *gin.Context) {
	var form orderForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, session.NoticeError, "Choose an amount greater than zero.")
		back(c, "/settings")
		return
	}
	order, err := h.accountService.CreateOrder(c.Request.Context(), middleware.CurrentClient(c), form.Amount)
	if err != nil {
		if !fail(c, err) {
			back(c, "/settings")
		}
		return
	}
	h.renderPage(c, order)
}

func (h *SettingsHandler) VerifyPayment(c *gin.Context) {
	var form paymentForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, session.NoticeError, "Payment details are incomplete.")
		back(c, "/settings")
		return
	}
	msg, err := h.accountService.VerifyPayment(c.Request.Context(), middleware.CurrentClient(c), apiclient.PaymentVerification{
		PaymentID: form.PaymentID,
		OrderID:   form.OrderID,
		Signature: form.Signature,
		Amount:    form.Amount,
	})
	if err != nil {
		if !fail(c, err) {
			back(c, "/settings")
		}
		return
	}
	if msg == "" {
		msg = "Payment verified."
	}
	flash(c, session.NoticeSuccess, msg)
	back(c, "/settings")
}

func (h *SettingsHandler) renderPage(c *gin.Context, order *model.PaymentOrder) {
	overview, err := h.accountService.Overview(c.Request.Context(), middleware.CurrentClient(c))
	if err != nil {
		if fail(c, err) {
			return
		}
		render(c, http.StatusOK, "settings", "Settings", settingsPage{Order: order})
		return
	}
	render(c, http.StatusOK, "settings", "Settings", settingsPage{
		Profile: overview.Profile,
		Usage:   overview.Usage,
		Order:   order,
	})
}
