package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/config"
	"github.com/greenity-lab/unitree-agent/internal/metrics"
	"github.com/greenity-lab/unitree-agent/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// Client talks to the Supabase backend: auth, the point-ledger RPC, profile
// reads and the redemption edge function. All user-attributed calls carry the
// stored access token; the backend derives the user from it, never from an
// explicit id parameter.
type Client struct {
	baseURL      string
	anonKey      string
	http         *http.Client
	auth         storage.AuthStore
	profileCache *lru.LRU[string, *Profile]
	costCache    *lru.LRU[string, int]
	logger       zerolog.Logger
}

// New creates a backend client
func New(cfg config.BackendConfig, auth storage.AuthStore, logger zerolog.Logger) *Client {
	timeout := config.ParseDuration(cfg.Timeout, 15*time.Second)
	cacheTTL := config.ParseDuration(cfg.ProfileCacheTTL, time.Minute)

	size := cfg.CacheSize
	if size <= 0 {
		size = 16
	}

	return &Client{
		baseURL:      cfg.URL,
		anonKey:      cfg.AnonKey,
		http:         &http.Client{Timeout: timeout},
		auth:         auth,
		profileCache: lru.NewLRU[string, *Profile](size, nil, cacheTTL),
		costCache:    lru.NewLRU[string, int](1, nil, 10*cacheTTL),
		logger:       logger.With().Str("component", "backend").Logger(),
	}
}

// credentials returns the stored credentials, refreshing the access token
// when it is about to expire
func (c *Client) credentials(ctx context.Context) (*storage.Credentials, error) {
	creds, err := c.auth.Current(ctx)
	if err == storage.ErrNotFound {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, err
	}

	if !creds.ExpiresAt.IsZero() && time.Until(creds.ExpiresAt) < 30*time.Second {
		refreshed, err := c.Refresh(ctx, creds)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Token refresh failed, trying stored token")
			return creds, nil
		}
		return refreshed, nil
	}

	return creds, nil
}

// do sends a request and decodes a JSON response into out (when non-nil).
// Authenticated requests that come back 401 are retried once after a token
// refresh.
func (c *Client) do(ctx context.Context, op, method, path string, body interface{}, out interface{}, authenticated bool) error {
	err := c.doOnce(ctx, method, path, body, out, authenticated, "")
	if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusUnauthorized && authenticated {
		creds, credErr := c.auth.Current(ctx)
		if credErr != nil {
			metrics.BackendRequests.WithLabelValues(op, "error").Inc()
			return err
		}
		refreshed, refErr := c.Refresh(ctx, creds)
		if refErr != nil {
			metrics.BackendRequests.WithLabelValues(op, "error").Inc()
			return err
		}
		err = c.doOnce(ctx, method, path, body, out, true, refreshed.AccessToken)
	}

	if err != nil {
		metrics.BackendRequests.WithLabelValues(op, "error").Inc()
		return err
	}

	metrics.BackendRequests.WithLabelValues(op, "ok").Inc()
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body interface{}, out interface{}, authenticated bool, token string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")

	if authenticated {
		if token == "" {
			creds, err := c.credentials(ctx)
			if err != nil {
				return err
			}
			token = creds.AccessToken
		}
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// errorMessage extracts a readable message from an error response body
func errorMessage(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Msg
}
