package app

import (
	"errors"
	"regexp"
	"strings"

	"contractrisk/internal/apiclient"
)

var (
	ErrNoPendingLogin = errors.New("no login in progress")
	ErrNoResetFlow    = errors.New("no password reset in progress")
	ErrEmptyQuestion  = errors.New("question is empty")
)

const minPasswordLength = 8

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidationError is an input problem caught before anything is sent to the backend.
// Message is shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UserMessage picks the text to show for err.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrNoPendingLogin):
		return "Your login attempt has expired. Please sign in again."
	case errors.Is(err, ErrNoResetFlow):
		return "Please request a new OTP to reset your password."
	case errors.Is(err, apiclient.ErrNoToken):
		return "Registration successful, but login failed. Please login manually."
	}
	return apiclient.GenericMessage
}

func validateOTP(otp string) error {
	if !otpPattern.MatchString(strings.TrimSpace(otp)) {
		return invalid("otp", "Enter the 6-digit code from your email.")
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return invalid("password", "Password must be at least 8 characters.")
	}
	if password != confirm {
		return invalid("confirm_password", "Passwords do not match!")
	}
	return nil
}
