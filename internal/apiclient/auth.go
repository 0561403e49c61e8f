// internal/apiclient/auth.go
package apiclient

import (
	"context"
	"net/http"

	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
)

// Auth endpoints bypass the bearer/refresh wrapping: login has no token yet
// and refresh authenticates with the refresh token itself.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPair struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         domain.AdminUser `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	resp, err := c.exec(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}
	var pair TokenPair
	if err := decode(resp, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	resp, err := c.exec(ctx, http.MethodPost, "/auth/refresh", nil, refreshRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return nil, err
	}
	var pair TokenPair
	if err := decode(resp, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}
