package backend

import (
	"context"
	"net/http"
)

// Profile is the user row backing the points balance and tree state.
type Profile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Points      int    `json:"points"`
	TotalPoints int    `json:"total_points"`
}

// LeaderboardEntry is one row of the campus leaderboard.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	FullName string `json:"full_name"`
	Points   int    `json:"points"`
}

const defaultTreeCost = 2000

// GetProfile fetches the signed-in user's profile. Results are cached
// briefly so status displays don't hammer the backend.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}

	if cached, ok := c.profileCache.Get(creds.UserID); ok {
		return cached, nil
	}

	var rows []Profile
	err = c.do(ctx, "get_profile", http.MethodGet, "/rest/v1/profiles?id=eq."+creds.UserID, nil, &rows, true)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &APIError{Status: http.StatusNotFound, Message: "profile not found"}
	}

	profile := &rows[0]
	c.profileCache.Add(creds.UserID, profile)
	return profile, nil
}

// TreeCost returns the point cost of a real tree. Falls back to the
// historical cost when the rewards catalog has no active real-tree entry.
func (c *Client) TreeCost(ctx context.Context) (int, error) {
	if cached, ok := c.costCache.Get("real_tree"); ok {
		return cached, nil
	}

	var rows []struct {
		PointsCost int `json:"points_cost"`
	}
	err := c.do(ctx, "tree_cost", http.MethodGet,
		"/rest/v1/rewards?category=eq.real_tree&is_active=eq.true&select=points_cost&limit=1", nil, &rows, true)
	if err != nil {
		return 0, err
	}

	cost := defaultTreeCost
	if len(rows) > 0 && rows[0].PointsCost > 0 {
		cost = rows[0].PointsCost
	}

	c.costCache.Add("real_tree", cost)
	return cost, nil
}

// RedeemRealTree spends points on planting a real tree. The backend
// validates the balance and rejects overlapping requests.
func (c *Client) RedeemRealTree(ctx context.Context) error {
	err := c.do(ctx, "redeem_tree", http.MethodPost, "/functions/v1/request-real-tree", struct{}{}, nil, true)
	if apiErr, ok := err.(*APIError); ok {
		switch apiErr.Status {
		case http.StatusForbidden:
			return ErrInsufficientPoints
		case http.StatusConflict:
			return ErrRedemptionPending
		}
	}
	if err != nil {
		return err
	}

	creds, credErr := c.auth.Current(ctx)
	if credErr == nil {
		c.profileCache.Remove(creds.UserID)
	}

	c.logger.Info().Msg("Real tree redemption requested")
	return nil
}

// Leaderboard returns the campus points ranking.
func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var rows []LeaderboardEntry
	err := c.do(ctx, "leaderboard", http.MethodPost, "/rest/v1/rpc/get_leaderboard", struct{}{}, &rows, true)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
