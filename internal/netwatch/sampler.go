package netwatch

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoWirelessInterface is returned when no WiFi interface can be found.
var ErrNoWirelessInterface = errors.New("netwatch: no wireless interface")

// IWSampler samples the WiFi attachment with the `iw` utility. When the
// interface name is empty it is discovered from /sys/class/net.
type IWSampler struct {
	Interface string
}

// Sample reports the current WiFi attachment
func (s *IWSampler) Sample(ctx context.Context) (WifiState, error) {
	iface := s.Interface
	if iface == "" {
		found, err := findWirelessInterface()
		if err != nil {
			return WifiState{}, err
		}
		iface = found
	}

	out, err := exec.CommandContext(ctx, "iw", "dev", iface, "link").Output()
	if err != nil {
		return WifiState{}, err
	}

	return parseIWLink(string(out)), nil
}

// parseIWLink extracts SSID and BSSID from `iw dev <iface> link` output.
// Disconnected interfaces report "Not connected."
func parseIWLink(out string) WifiState {
	var state WifiState

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "Not connected") {
			return WifiState{}
		}

		if strings.HasPrefix(line, "Connected to ") {
			fields := strings.Fields(strings.TrimPrefix(line, "Connected to "))
			if len(fields) > 0 {
				state.Connected = true
				state.BSSID = strings.ToLower(fields[0])
			}
			continue
		}

		if strings.HasPrefix(line, "SSID:") {
			state.SSID = strings.TrimSpace(strings.TrimPrefix(line, "SSID:"))
		}
	}

	return state
}

func findWirelessInterface() (string, error) {
	entries, err := os.ReadDir("/sys/class/net")
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		wireless := filepath.Join("/sys/class/net", entry.Name(), "wireless")
		if _, err := os.Stat(wireless); err == nil {
			return entry.Name(), nil
		}
	}

	return "", ErrNoWirelessInterface
}

// StaticLocator reports a fixed position, for devices without a location
// source whose deployment site is known (e.g. kiosks).
type StaticLocator struct {
	Position Position
}

// Locate returns the configured position
func (l *StaticLocator) Locate(ctx context.Context) (Position, error) {
	return l.Position, nil
}
