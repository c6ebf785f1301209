package types

// Boot configuration documents published by the config service as retained
// messages. The pin manager itself holds no persistent state; these documents
// are what boot-time callers use to rebuild reservations and zone layout.

// ZoneLayout maps a subzone to the pins a driver should re-assign to it after
// it has re-acquired its reservations.
type ZoneLayout struct {
	Zone string `json:"zone"`
	Pins []int  `json:"pins"`
}

// PinsBootConfig is published retained on config/pins.
type PinsBootConfig struct {
	Zones []ZoneLayout `json:"zones,omitempty"`
}

// TelemetryConfig is published retained on config/telemetry.
type TelemetryConfig struct {
	IntervalS int `json:"interval_s"`
}
