package notify

import (
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
)

// SystemdNotifier surfaces the live session through the unit's systemd
// status line, visible in `systemctl status`. sd_notify writes replace the
// previous status, which gives the single-identity update-in-place behavior
// for free.
type SystemdNotifier struct {
	logger zerolog.Logger
}

// NewSystemdNotifier creates a systemd status notifier.
func NewSystemdNotifier(logger zerolog.Logger) *SystemdNotifier {
	return &SystemdNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *SystemdNotifier) SessionActive(elapsed time.Duration) error {
	attrs := KindSessionActive.Attributes()
	status := fmt.Sprintf("STATUS=%s, connected for %s", attrs.Title, FormatDuration(elapsed))

	sent, err := daemon.SdNotify(false, status)
	if err != nil {
		return err
	}
	if !sent {
		n.logger.Debug().Msg("Not running under systemd, status not sent")
	}
	return nil
}

func (n *SystemdNotifier) CapReached() error {
	attrs := KindDailyCapReached.Attributes()
	_, err := daemon.SdNotify(false, "STATUS="+attrs.Title)
	return err
}

func (n *SystemdNotifier) Dismiss() error {
	attrs := KindSessionEnded.Attributes()
	_, err := daemon.SdNotify(false, "STATUS="+attrs.Title)
	return err
}

// LogNotifier writes session state to the log, for hosts without systemd.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) SessionActive(elapsed time.Duration) error {
	n.logger.Info().
		Str("kind", KindSessionActive.String()).
		Str("elapsed", FormatDuration(elapsed)).
		Msg("Session active")
	return nil
}

func (n *LogNotifier) CapReached() error {
	n.logger.Info().Str("kind", KindDailyCapReached.String()).Msg("Daily connection limit reached")
	return nil
}

func (n *LogNotifier) Dismiss() error {
	n.logger.Info().Str("kind", KindSessionEnded.String()).Msg("Session notification dismissed")
	return nil
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) SessionActive(time.Duration) error { return nil }
func (Noop) CapReached() error                 { return nil }
func (Noop) Dismiss() error                    { return nil }

// ForBackend returns the notifier for a configured backend name. Unknown
// names fall back to Noop; config validation rejects them earlier.
func ForBackend(backend string, logger zerolog.Logger) Notifier {
	switch backend {
	case "systemd":
		return NewSystemdNotifier(logger)
	case "log":
		return NewLogNotifier(logger)
	default:
		return Noop{}
	}
}
