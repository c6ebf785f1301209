package types

// TelemetrySnapshot is the periodic status frame published on
// telemetry/pins. BootID is regenerated each power-up so a collector can
// tell a reboot from a counter wrap.
type TelemetrySnapshot struct {
	BootID   string     `json:"boot_id"`
	Seq      uint32     `json:"seq"`
	UptimeMs int64      `json:"uptime_ms"`
	Pins     PinsStatus `json:"pins"`
}
