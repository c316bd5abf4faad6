package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/storage"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (t *tokenResponse) credentials() *storage.Credentials {
	return &storage.Credentials{
		UserID:       t.User.ID,
		Email:        t.User.Email,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
	}
}

// SignIn exchanges an email and password for a session and stores the
// resulting credentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (*storage.Credentials, error) {
	var resp tokenResponse
	err := c.do(ctx, "sign_in", http.MethodPost, "/auth/v1/token?grant_type=password",
		map[string]string{"email": email, "password": password}, &resp, false)
	if err != nil {
		return nil, err
	}

	creds := resp.credentials()
	if err := c.auth.Save(ctx, *creds); err != nil {
		return nil, err
	}

	c.logger.Info().Str("email", email).Msg("Signed in")
	return creds, nil
}

// Refresh exchanges the stored refresh token for a new session and persists
// the rotated credentials.
func (c *Client) Refresh(ctx context.Context, creds *storage.Credentials) (*storage.Credentials, error) {
	var resp tokenResponse
	err := c.do(ctx, "refresh", http.MethodPost, "/auth/v1/token?grant_type=refresh_token",
		map[string]string{"refresh_token": creds.RefreshToken}, &resp, false)
	if err != nil {
		return nil, err
	}

	refreshed := resp.credentials()
	if refreshed.UserID == "" {
		refreshed.UserID = creds.UserID
		refreshed.Email = creds.Email
	}
	if err := c.auth.Save(ctx, *refreshed); err != nil {
		return nil, err
	}

	c.logger.Debug().Msg("Access token refreshed")
	return refreshed, nil
}

// SignOut clears the stored credentials. The remote session is left to
// expire on its own.
func (c *Client) SignOut(ctx context.Context) error {
	c.profileCache.Purge()
	return c.auth.Clear(ctx)
}
