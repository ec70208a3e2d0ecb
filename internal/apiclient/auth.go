package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// ErrNoToken is returned when a flow that should issue a credential did not.
var ErrNoToken = errors.New("backend did not issue a token")

type tokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login starts the two-step sign-in; on success the backend emails an OTP.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out messageResponse
	err := c.Do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	return out.Message, err
}

// VerifyLogin exchanges the emailed OTP for a bearer credential.
func (c *Client) VerifyLogin(ctx context.Context, username, otp string) (string, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("otp", otp)

	var out tokenResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/login/verify?"+q.Encode(), nil, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", ErrNoToken
	}
	return out.Token, nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	var raw string
	return c.Do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &raw)
}

// CompleteOAuth finishes a Google sign-up and returns the issued credential.
func (c *Client) CompleteOAuth(ctx context.Context, email, username, password, tempToken string) (string, error) {
	var out tokenResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/oauth-complete", map[string]string{
		"email":     email,
		"username":  username,
		"password":  password,
		"tempToken": tempToken,
	}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", ErrNoToken
	}
	return out.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) SendResetOTP(ctx context.Context, email string) error {
	return c.Do(ctx, http.MethodPost, "/auth/forgot-password/send-otp", map[string]string{
		"email": email,
	}, nil)
}

func (c *Client) VerifyResetOTP(ctx context.Context, email, otp string) error {
	return c.Do(ctx, http.MethodPost, "/auth/forgot-password/verify-otp", map[string]string{
		"email": email,
		"otp":   otp,
	}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	return c.Do(ctx, http.MethodPost, "/auth/forgot-password/reset", map[string]string{
		"email":       email,
		"otp":         otp,
		"newPassword": newPassword,
	}, nil)
}
