package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ServerNow returns the backend's notion of the current time. Device clocks
// are never trusted for accrual, so callers must treat an error here as
// "time unknown" rather than falling back to the local clock.
func (c *Client) ServerNow(ctx context.Context) (time.Time, error) {
	var resp struct {
		Now int64 `json:"now"`
	}
	err := c.do(ctx, "server_now", http.MethodPost, "/functions/v1/get-time", struct{}{}, &resp, true)
	if err != nil {
		return time.Time{}, err
	}
	if resp.Now <= 0 {
		return time.Time{}, fmt.Errorf("backend: invalid server time %d", resp.Now)
	}
	return time.UnixMilli(resp.Now), nil
}

// CreditConnectionTime submits a confirmed span of connected time to the
// point ledger. The backend converts it to points and enforces its own
// per-day cap; the call either fully succeeds or leaves the ledger
// untouched.
func (c *Client) CreditConnectionTime(ctx context.Context, durationMs int64) error {
	if durationMs <= 0 {
		return fmt.Errorf("backend: duration must be positive, got %d", durationMs)
	}

	body := map[string]int64{"duration_ms_input": durationMs}
	err := c.do(ctx, "credit_time", http.MethodPost, "/rest/v1/rpc/credit_wifi_time", body, nil, true)
	if err != nil {
		return err
	}

	c.logger.Info().Int64("duration_ms", durationMs).Msg("Connection time credited")
	return nil
}
