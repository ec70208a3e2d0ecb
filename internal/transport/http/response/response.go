package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"contractrisk/internal/apiclient"
	"contractrisk/internal/app"
)

const (
	CodeOK             = 0
	CodeBadRequest     = 40000
	CodeValidation     = 40001
	CodeSessionExpired = 40100
	CodeForbidden      = 40300
	CodeInternalServer = 50000
	CodeBackendError   = 50200
	CodeUnavailable    = 50300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

func ErrorWithData(c *gin.Context, httpStatus, code int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BackendError maps a failed service call onto a JSON error envelope.
func BackendError(c *gin.Context, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, CodeValidation, verr.Message)
	case errors.Is(err, apiclient.ErrSessionExpired):
		Error(c, http.StatusUnauthorized, CodeSessionExpired, app.UserMessage(err))
	case errors.Is(err, apiclient.ErrForbidden):
		Error(c, http.StatusForbidden, CodeForbidden, apiclient.PermissionDeniedMessage)
	case errors.Is(err, apiclient.ErrTransport):
		Error(c, http.StatusBadGateway, CodeUnavailable, app.UserMessage(err))
	default:
		Error(c, http.StatusBadGateway, CodeBackendError, app.UserMessage(err))
	}
}
