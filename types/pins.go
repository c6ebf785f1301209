package types

import "time"

// ------------------------
// Pin capability classes
// ------------------------

// PinClass is the immutable hardware class of a physical pin.
type PinClass string

const (
	ClassStandard         PinClass = "standard"
	ClassInputOnly        PinClass = "input_only"
	ClassHardwareReserved PinClass = "hardware_reserved"
)

// ------------------------
// Electrical modes
// ------------------------

// PinMode is the electrical mode recorded on a reservation.
type PinMode string

const (
	ModeInput       PinMode = "input"
	ModeOutput      PinMode = "output"
	ModeAnalogInput PinMode = "analog_input"
)

// Valid reports whether m is one of the three reservable modes.
func (m PinMode) Valid() bool {
	switch m {
	case ModeInput, ModeOutput, ModeAnalogInput:
		return true
	}
	return false
}

// ------------------------
// Introspection documents
// ------------------------

// PinInfo is the total per-pin status document. For unreserved pins Owner,
// Label and Mode are empty and Since is the zero time.
type PinInfo struct {
	Pin      int      `json:"pin"`
	Class    PinClass `json:"class"`
	Reserved bool     `json:"reserved"`
	Owner    string   `json:"owner,omitempty"`
	Label    string   `json:"label,omitempty"`
	Mode     PinMode  `json:"mode,omitempty"`
	Since    time.Time `json:"since,omitzero"`
	Safe     bool     `json:"safe"`
	Zone     string   `json:"zone,omitempty"`
}

// SafeModeStatus describes the global safe-mode flag.
type SafeModeStatus struct {
	Active bool      `json:"active"`
	Reason string    `json:"reason,omitempty"`
	Since  time.Time `json:"since,omitzero"`
}

// ZoneInfo lists one subzone's members in insertion order.
type ZoneInfo struct {
	Zone string `json:"zone"`
	Pins []int  `json:"pins"`
	Safe bool   `json:"safe"`
}

// PinsStatus is the full status dump published for telemetry.
type PinsStatus struct {
	Board     string         `json:"board"`
	Total     int            `json:"total"`
	Available int            `json:"available"`
	Reserved  []PinInfo      `json:"reserved"`
	Zones     []ZoneInfo     `json:"zones"`
	SafeMode  SafeModeStatus `json:"safe_mode"`
}
