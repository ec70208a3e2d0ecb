package apiclient

import (
	"context"
	"net/http"

	"contractrisk/internal/model"
)

func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	var out model.Profile
	if err := c.Do(ctx, http.MethodGet, "/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAccount removes the signed-in account after re-checking the password.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	return c.Do(ctx, http.MethodDelete, "/users/delete-account", map[string]string{
		"password": password,
	}, nil)
}

func (c *Client) Usage(ctx context.Context) (*model.Usage, error) {
	var out model.Usage
	if err := c.Do(ctx, http.MethodGet, "/users/usage", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
