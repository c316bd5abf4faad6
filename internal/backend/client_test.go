package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/config"
	"github.com/greenity-lab/unitree-agent/internal/storage"
	"github.com/rs/zerolog"
)

type memAuth struct {
	mu    sync.Mutex
	creds *storage.Credentials
}

func (m *memAuth) Current(ctx context.Context) (*storage.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return nil, storage.ErrNotFound
	}
	copied := *m.creds
	return &copied, nil
}

func (m *memAuth) Save(ctx context.Context, creds storage.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = &creds
	return nil
}

func (m *memAuth) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	return nil
}

func testClient(t *testing.T, handler http.Handler) (*Client, *memAuth) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	auth := &memAuth{}
	client := New(config.BackendConfig{
		URL:             server.URL,
		AnonKey:         "test-anon-key",
		Timeout:         "5s",
		ProfileCacheTTL: "1m",
		CacheSize:       4,
	}, auth, zerolog.Nop())

	return client, auth
}

func signedIn(auth *memAuth) {
	auth.creds = &storage.Credentials{
		UserID:       "user-1",
		Email:        "student@gre.edu.vn",
		AccessToken:  "valid-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func TestSignIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("Expected grant_type password, got %q", got)
		}
		if got := r.Header.Get("apikey"); got != "test-anon-key" {
			t.Errorf("Expected anon key header, got %q", got)
		}

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "student@gre.edu.vn" {
			t.Errorf("Unexpected email %q", body["email"])
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "token-abc",
			"refresh_token": "refresh-abc",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1", "email": "student@gre.edu.vn"},
		})
	})

	client, auth := testClient(t, mux)

	creds, err := client.SignIn(context.Background(), "student@gre.edu.vn", "secret")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if creds.UserID != "user-1" || creds.AccessToken != "token-abc" {
		t.Errorf("Unexpected credentials: %+v", creds)
	}

	stored, err := auth.Current(context.Background())
	if err != nil {
		t.Fatalf("Expected stored credentials: %v", err)
	}
	if stored.RefreshToken != "refresh-abc" {
		t.Errorf("Expected refresh token persisted, got %q", stored.RefreshToken)
	}
}

func TestSignIn_BadPassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","msg":"Invalid login credentials"}`))
	})

	client, auth := testClient(t, mux)

	_, err := client.SignIn(context.Background(), "student@gre.edu.vn", "wrong")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", apiErr.Status)
	}

	if _, err := auth.Current(context.Background()); err != storage.ErrNotFound {
		t.Error("Failed sign-in must not store credentials")
	}
}

func TestServerNow(t *testing.T) {
	want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/functions/v1/get-time", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer valid-token" {
			t.Errorf("Expected user token, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]int64{"now": want.UnixMilli()})
	})

	client, auth := testClient(t, mux)
	signedIn(auth)

	now, err := client.ServerNow(context.Background())
	if err != nil {
		t.Fatalf("ServerNow failed: %v", err)
	}
	if !now.Equal(want) {
		t.Errorf("Expected %v, got %v", want, now)
	}
}

func TestServerNow_NotSignedIn(t *testing.T) {
	client, _ := testClient(t, http.NewServeMux())

	_, err := client.ServerNow(context.Background())
	if err != ErrNotSignedIn {
		t.Errorf("Expected ErrNotSignedIn, got %v", err)
	}
}

func TestCreditConnectionTime(t *testing.T) {
	var gotBody map[string]int64

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/rpc/credit_wifi_time", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	client, auth := testClient(t, mux)
	signedIn(auth)

	if err := client.CreditConnectionTime(context.Background(), 120_000); err != nil {
		t.Fatalf("CreditConnectionTime failed: %v", err)
	}
	if gotBody["duration_ms_input"] != 120_000 {
		t.Errorf("Expected duration_ms_input 120000, got %d", gotBody["duration_ms_input"])
	}
}

func TestCreditConnectionTime_RejectsNonPositive(t *testing.T) {
	client, auth := testClient(t, http.NewServeMux())
	signedIn(auth)

	if err := client.CreditConnectionTime(context.Background(), 0); err == nil {
		t.Error("Expected error for zero duration")
	}
	if err := client.CreditConnectionTime(context.Background(), -60_000); err == nil {
		t.Error("Expected error for negative duration")
	}
}

func TestRefreshOn401(t *testing.T) {
	var creditCalls, refreshCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/rpc/credit_wifi_time", func(w http.ResponseWriter, r *http.Request) {
		creditCalls++
		if r.Header.Get("Authorization") == "Bearer stale-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "fresh-token",
			"refresh_token": "fresh-refresh",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1", "email": "student@gre.edu.vn"},
		})
	})

	client, auth := testClient(t, mux)
	auth.creds = &storage.Credentials{
		UserID:       "user-1",
		AccessToken:  "stale-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	if err := client.CreditConnectionTime(context.Background(), 60_000); err != nil {
		t.Fatalf("Expected refresh-and-retry to succeed: %v", err)
	}
	if creditCalls != 2 {
		t.Errorf("Expected 2 credit calls (401 then retry), got %d", creditCalls)
	}
	if refreshCalls != 1 {
		t.Errorf("Expected 1 refresh call, got %d", refreshCalls)
	}

	stored, _ := auth.Current(context.Background())
	if stored.AccessToken != "fresh-token" {
		t.Errorf("Expected rotated token persisted, got %q", stored.AccessToken)
	}
}

func TestGetProfile_Cached(t *testing.T) {
	var calls int

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("id"); got != "eq.user-1" {
			t.Errorf("Expected id filter eq.user-1, got %q", got)
		}
		_ = json.NewEncoder(w).Encode([]Profile{{
			ID: "user-1", Email: "student@gre.edu.vn", Points: 1500, TotalPoints: 4200,
		}})
	})

	client, auth := testClient(t, mux)
	signedIn(auth)

	for i := 0; i < 3; i++ {
		profile, err := client.GetProfile(context.Background())
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if profile.Points != 1500 {
			t.Errorf("Expected 1500 points, got %d", profile.Points)
		}
	}

	if calls != 1 {
		t.Errorf("Expected a single backend call, got %d", calls)
	}
}

func TestTreeCost_FallsBackToDefault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/rewards", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})

	client, auth := testClient(t, mux)
	signedIn(auth)

	cost, err := client.TreeCost(context.Background())
	if err != nil {
		t.Fatalf("TreeCost failed: %v", err)
	}
	if cost != defaultTreeCost {
		t.Errorf("Expected default cost %d, got %d", defaultTreeCost, cost)
	}
}

func TestRedeemRealTree_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"insufficient points", http.StatusForbidden, ErrInsufficientPoints},
		{"already pending", http.StatusConflict, ErrRedemptionPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/functions/v1/request-real-tree", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			client, auth := testClient(t, mux)
			signedIn(auth)

			if err := client.RedeemRealTree(context.Background()); err != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLeaderboard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/rpc/get_leaderboard", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]LeaderboardEntry{
			{Rank: 1, FullName: "Nguyen Van A", Points: 9000},
			{Rank: 2, FullName: "Tran Thi B", Points: 7500},
		})
	})

	client, auth := testClient(t, mux)
	signedIn(auth)

	rows, err := client.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(rows) != 2 || rows[0].FullName != "Nguyen Van A" {
		t.Errorf("Unexpected leaderboard: %+v", rows)
	}
}
