package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/skybi/fleetdash/internal/fleet"
	"golang.org/x/oauth2"
)

// ErrNoRefreshToken is returned by Refresh if the session holds no refresh token
var ErrNoRefreshToken = errors.New("the session holds no refresh token")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges the given credentials for a session token and begins the session with it
func (client *Client) Login(ctx context.Context, username, password string) (*fleet.LoginResponse, error) {
	resp := new(fleet.LoginResponse)
	err := client.Request(ctx, "/auth/login", &RequestOptions{
		Method: http.MethodPost,
		Body:   &loginRequest{Username: username, Password: password},
	}, resp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			message := apiErr.Message
			if message == messageGenericFailure || message == messageAuthRequired {
				message = messageLoginFailure
			}
			return nil, &Error{Status: apiErr.Status, Message: message}
		}
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &Error{Status: http.StatusOK, Message: messageLoginFailure}
	}

	if err := client.session.Begin(ctx, tokenFromResponse(resp)); err != nil {
		return nil, err
	}
	return resp, nil
}

// Logout ends the session locally; the backend is not contacted
func (client *Client) Logout(ctx context.Context) error {
	return client.session.End(ctx)
}

// CurrentUser retrieves the user the session belongs to
func (client *Client) CurrentUser(ctx context.Context) (*fleet.User, error) {
	user := new(fleet.User)
	if err := client.Request(ctx, "/auth/me", nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Refresh exchanges the session's refresh token for a new token
func (client *Client) Refresh(ctx context.Context) (*fleet.LoginResponse, error) {
	refreshToken := client.session.RefreshToken()
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	resp := new(fleet.LoginResponse)
	err := client.Request(ctx, "/auth/refresh", &RequestOptions{
		Method: http.MethodPost,
		Body:   &refreshRequest{RefreshToken: refreshToken},
	}, resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &Error{Status: http.StatusOK, Message: messageGenericFailure}
	}

	token := tokenFromResponse(resp)
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	if err := client.session.Begin(ctx, token); err != nil {
		return nil, err
	}
	return resp, nil
}

func tokenFromResponse(resp *fleet.LoginResponse) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		RefreshToken: resp.RefreshToken,
	}
	if token.TokenType == "" {
		token.TokenType = "bearer"
	}
	if resp.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return token
}
