// Package systemd wraps the sd_notify lifecycle protocol so the agent can
// report readiness and shutdown when running as a systemd service. All calls
// are harmless no-ops outside systemd.
package systemd

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady sends READY=1, telling systemd startup is complete.
func NotifyReady() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		return fmt.Errorf("failed to send sd_notify ready: %w", err)
	}
	return nil
}

// NotifyStopping sends STOPPING=1 ahead of a graceful shutdown.
func NotifyStopping() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		return fmt.Errorf("failed to send sd_notify stopping: %w", err)
	}
	return nil
}

// NotifyWatchdog sends WATCHDOG=1. Call periodically when WatchdogSec is set
// on the unit.
func NotifyWatchdog() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog)
	if err != nil {
		return fmt.Errorf("failed to send sd_notify watchdog: %w", err)
	}
	return nil
}
