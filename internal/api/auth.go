package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Login exchanges credentials for a bearer token. The backend expects an
// OAuth2 password form, so the body is form-urlencoded.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Token, error) {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	var token Token
	if err := c.Send(ctx, http.MethodPost, "/auth/login", form, nil, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("login response did not include an access token")
	}
	return &token, nil
}

// Register creates a user account
func (c *Client) Register(ctx context.Context, creds Credentials) (*User, error) {
	var user User
	if err := c.Send(ctx, http.MethodPost, "/auth/register", creds, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
