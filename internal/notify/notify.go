package notify

import (
	"fmt"
	"time"
)

// Kind classifies a user-visible notification.
type Kind int

const (
	KindSessionActive Kind = iota
	KindSessionEnded
	KindDailyCapReached
)

// Attributes are the presentation hints for a notification kind.
type Attributes struct {
	Title    string
	Icon     string
	Sticky   bool // sticky notifications update in place instead of stacking
	Priority string
}

// Attributes returns the presentation attributes for the kind. The mapping
// is total: every Kind value has an entry, and the zero Attributes return
// for an unknown value is unreachable for values produced by this package.
func (k Kind) Attributes() Attributes {
	switch k {
	case KindSessionActive:
		return Attributes{Title: "Connected to campus WiFi", Icon: "wifi", Sticky: true, Priority: "low"}
	case KindSessionEnded:
		return Attributes{Title: "Campus WiFi session ended", Icon: "wifi-off", Sticky: false, Priority: "low"}
	case KindDailyCapReached:
		return Attributes{Title: "Daily connection limit reached", Icon: "clock", Sticky: true, Priority: "normal"}
	}
	return Attributes{}
}

func (k Kind) String() string {
	switch k {
	case KindSessionActive:
		return "session_active"
	case KindSessionEnded:
		return "session_ended"
	case KindDailyCapReached:
		return "daily_cap_reached"
	}
	return "unknown"
}

// Notifier shows and clears the single "session active" status surface. One
// stable identity per kind: repeated updates replace, never stack.
type Notifier interface {
	// SessionActive shows or refreshes the live session notification with
	// the current elapsed time.
	SessionActive(elapsed time.Duration) error

	// CapReached replaces the live notification once no more time can be
	// credited today.
	CapReached() error

	// Dismiss clears the session notification.
	Dismiss() error
}

// FormatDuration renders an elapsed duration as "1h 23m 45s", dropping
// leading zero units.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
