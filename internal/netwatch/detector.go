package netwatch

import (
	"context"
	"strings"

	"github.com/greenity-lab/unitree-agent/internal/config"
	"github.com/greenity-lab/unitree-agent/internal/metrics"
	"github.com/rs/zerolog"
)

// Method identifies how campus presence was established
type Method string

const (
	MethodSSID     Method = "ssid"
	MethodBSSID    Method = "bssid"
	MethodGeofence Method = "geofence"
	MethodNone     Method = "none"
)

// Result is the outcome of one detection pass
type Result struct {
	Connected bool
	Method    Method
	Label     string // matched SSID/BSSID, or distance description for geofence
}

// WifiState describes the device's current WiFi attachment
type WifiState struct {
	Connected bool
	SSID      string
	BSSID     string
}

// Sampler reports the current WiFi attachment. Implementations degrade by
// returning an error; the detector treats that the same as no attachment.
type Sampler interface {
	Sample(ctx context.Context) (WifiState, error)
}

// Position is a WGS84 coordinate
type Position struct {
	Latitude  float64
	Longitude float64
}

// Locator supplies a best-effort location fix for the geofence fallback.
// A nil Locator means location is unavailable on this device.
type Locator interface {
	Locate(ctx context.Context) (Position, error)
}

// Detector decides whether the device is on the campus network. Detection is
// pure: it mutates nothing and never fails, it only observes.
type Detector struct {
	sampler Sampler
	locator Locator
	ssids   map[string]struct{} // lowercased
	bssids  map[string]struct{} // lowercased
	campus  Position
	radius  float64
	logger  zerolog.Logger
}

// NewDetector creates a detector from the campus configuration
func NewDetector(cfg config.CampusConfig, sampler Sampler, locator Locator, logger zerolog.Logger) *Detector {
	ssids := make(map[string]struct{}, len(cfg.SSIDs))
	for _, s := range cfg.SSIDs {
		ssids[strings.ToLower(s)] = struct{}{}
	}

	bssids := make(map[string]struct{}, len(cfg.BSSIDs))
	for _, b := range cfg.BSSIDs {
		bssids[strings.ToLower(b)] = struct{}{}
	}

	return &Detector{
		sampler: sampler,
		locator: locator,
		ssids:   ssids,
		bssids:  bssids,
		campus:  Position{Latitude: cfg.Latitude, Longitude: cfg.Longitude},
		radius:  cfg.GeofenceRadius,
		logger:  logger.With().Str("component", "netwatch").Logger(),
	}
}

// Detect runs one detection pass. SSID and BSSID matches short-circuit the
// geofence fallback; every failure degrades to "not connected".
func (d *Detector) Detect(ctx context.Context) Result {
	result := d.detect(ctx)

	metrics.DetectionsTotal.WithLabelValues(string(result.Method), boolLabel(result.Connected)).Inc()

	d.logger.Debug().
		Bool("connected", result.Connected).
		Str("method", string(result.Method)).
		Str("label", result.Label).
		Msg("Detection pass complete")

	return result
}

func (d *Detector) detect(ctx context.Context) Result {
	state, err := d.sampler.Sample(ctx)
	if err != nil {
		d.logger.Debug().Err(err).Msg("WiFi sample unavailable")
	}

	if err == nil && state.Connected {
		if state.SSID != "" {
			if _, ok := d.ssids[strings.ToLower(state.SSID)]; ok {
				return Result{Connected: true, Method: MethodSSID, Label: state.SSID}
			}
		}
		if state.BSSID != "" {
			if _, ok := d.bssids[strings.ToLower(state.BSSID)]; ok {
				return Result{Connected: true, Method: MethodBSSID, Label: state.BSSID}
			}
		}
	}

	// Geofence fallback, also covering the case where the OS withholds
	// SSID/BSSID from us
	if d.locator != nil {
		pos, err := d.locator.Locate(ctx)
		if err != nil {
			d.logger.Debug().Err(err).Msg("Location fix unavailable, skipping geofence check")
			return Result{Connected: false, Method: MethodNone}
		}

		distance := Haversine(pos, d.campus)
		if distance <= d.radius {
			return Result{Connected: true, Method: MethodGeofence, Label: "on campus"}
		}
	}

	return Result{Connected: false, Method: MethodNone}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
