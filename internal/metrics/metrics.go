package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Detection metrics
	DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitree_detections_total",
			Help: "Total campus-network detection passes",
		},
		[]string{"method", "connected"},
	)

	// Session metrics
	SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unitree_sessions_started_total",
			Help: "Total connection sessions started",
		},
	)

	SessionsEnded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unitree_sessions_ended_total",
			Help: "Total connection sessions ended",
		},
	)

	SessionActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "unitree_session_active",
			Help: "Whether a connection session is currently open",
		},
	)

	// Reconciliation metrics
	ReconcilePasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitree_reconcile_passes_total",
			Help: "Reconciliation passes by outcome",
		},
		[]string{"outcome"},
	)

	MinutesCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unitree_minutes_credited_total",
			Help: "Whole minutes credited to the remote point ledger",
		},
	)

	DailyConnectedMs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "unitree_daily_connected_milliseconds",
			Help: "Connected time logged today (display total)",
		},
	)

	// Backend metrics
	BackendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitree_backend_requests_total",
			Help: "Backend API requests by operation and result",
		},
		[]string{"operation", "result"},
	)
)

// Reconcile pass outcomes
const (
	OutcomeCredited      = "credited"
	OutcomeSkippedShort  = "skipped_short"
	OutcomeSkippedNoTime = "skipped_no_trusted_time"
	OutcomeSkippedLocked = "skipped_locked"
	OutcomeSkippedCapped = "skipped_daily_cap"
	OutcomeFailed        = "failed"
)

func init() {
	prometheus.MustRegister(
		DetectionsTotal,
		SessionsStarted,
		SessionsEnded,
		SessionActive,
		ReconcilePasses,
		MinutesCredited,
		DailyConnectedMs,
		BackendRequests,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
