package encoder

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Level is a QR error-correction level.
type Level int

const (
	Low      Level = iota + 1 // ~7% recovery
	Medium                    // ~15% recovery
	Quartile                  // ~25% recovery
	High                      // ~30% recovery
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = High

// go-qrcode names the four levels Low/Medium/High/Highest.
var recoveryLevels = map[Level]qrcode.RecoveryLevel{
	Low:      qrcode.Low,
	Medium:   qrcode.Medium,
	Quartile: qrcode.High,
	High:     qrcode.Highest,
}

func (l Level) recoveryLevel() (qrcode.RecoveryLevel, bool) {
	rl, ok := recoveryLevels[l]
	return rl, ok
}

func (l Level) String() string {
	switch l {
	case Low:
		return "L"
	case Medium:
		return "M"
	case Quartile:
		return "Q"
	case High:
		return "H"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel accepts the single-letter names (L, M, Q, H) and the long forms
// (low, medium, quartile, high), case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "low":
		return Low, nil
	case "m", "medium":
		return Medium, nil
	case "q", "quartile":
		return Quartile, nil
	case "h", "high":
		return High, nil
	}
	return 0, fmt.Errorf("unknown error correction level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if _, ok := l.recoveryLevel(); !ok {
		return nil, fmt.Errorf("unknown error correction level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
