package device

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTransition = errors.New("invalid device state transition")

// Type distinguishes disks from SES enclosures.
type Type string

const (
	TypeDisk      Type = "disk"
	TypeEnclosure Type = "enclosure"
)

// State tracks how far a device has progressed through inventory queries.
type State int

const (
	Discovered State = iota
	IdentityQueried
	ReadyChecked
	CapacityQueried
	TemperatureQueried
	Correlated
	Complete
	Failed
)

var stateNames = []string{
	"discovered",
	"identity_queried",
	"ready_checked",
	"capacity_queried",
	"temperature_queried",
	"correlated",
	"complete",
	"failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown device state %q", text)
}

// next returns the only state a device of type t may move to from s.
func next(t Type, s State) (State, bool) {
	if t == TypeEnclosure {
		switch s {
		case Discovered:
			return IdentityQueried, true
		case IdentityQueried:
			return Complete, true
		}
		return 0, false
	}
	if s >= Discovered && s < Complete {
		return s + 1, true
	}
	return 0, false
}

// ParseType maps enumerator type strings ("disk", "enclosu", "Direct Access",
// "Host Managed Zoned Block", "(0x14)") to a Type.
func ParseType(s string) (Type, bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(lower, "disk"),
		strings.HasPrefix(lower, "direct"),
		strings.HasPrefix(lower, "host managed"),
		strings.Contains(lower, "0x14"):
		return TypeDisk, true
	case strings.HasPrefix(lower, "enclosu"):
		return TypeEnclosure, true
	}
	return "", false
}
