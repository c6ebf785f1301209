// services/pinmgr/safemode.go
package pinmgr

import (
	"time"

	"github.com/Auto-one-Family/Automation-One-sub017/errcode"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// EnableSafeModeForAllPins is the emergency stop. It raises the global flag
// and sweeps every non-hardware-reserved pin into its inert state, reserved
// or not. It takes no lock and reads no reservation state: the flag is an
// atomic and the sweep list is immutable, so no invariant has to be intact
// and no other task can delay it. It cannot fail.
//
// Global safe mode is sticky: nothing here or elsewhere clears the flag
// except an explicit DisableSafeModeForAllPins call.
func (m *Manager) EnableSafeModeForAllPins(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	m.globalInfo.Store(&globalSafe{reason: reason, since: time.Now()})
	m.global.Store(true)

	for _, pin := range m.sweep {
		m.drv.ForceSafe(pin)
	}
}

// DisableSafeModeForAllPins is the explicit, authorised exit from global
// safe mode. Per-pin and per-zone safe flags are tracked independently and
// are left exactly as they were; pins stay electrically inert until their
// owners reconfigure them.
func (m *Manager) DisableSafeModeForAllPins() {
	m.global.Store(false)
	m.globalInfo.Store(nil)
}

// EnableSafeModeForPin forces a single pin inert. Ownership is untouched:
// a pin can be safe while still reserved.
func (m *Manager) EnableSafeModeForPin(pin int) error {
	m.mu.Lock()
	class, known := m.class[pin]
	if !known {
		m.mu.Unlock()
		return errcode.UnknownPin
	}
	if class == types.ClassHardwareReserved {
		m.mu.Unlock()
		return errcode.HardwareConflict
	}
	m.safe[pin] = true
	m.mu.Unlock()

	m.drv.ForceSafe(pin)
	return nil
}

// DisableSafeModeForPin clears the per-pin flag. The pin is not re-driven;
// that is the owner's job via ConfigurePinMode.
func (m *Manager) DisableSafeModeForPin(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, known := m.class[pin]; !known {
		return errcode.UnknownPin
	}
	delete(m.safe, pin)
	return nil
}

// EnableSafeModeForSubzone isolates one physical area: every member pin is
// forced inert, independent of the global flag, without halting the board.
func (m *Manager) EnableSafeModeForSubzone(zoneName string) error {
	m.mu.Lock()
	z, ok := m.zones[zoneName]
	if !ok {
		m.mu.Unlock()
		return errcode.UnknownZone
	}
	members := append([]int(nil), z.pins...)
	for _, pin := range members {
		m.safe[pin] = true
	}
	m.mu.Unlock()

	for _, pin := range members {
		m.drv.ForceSafe(pin)
	}
	return nil
}

// DisableSafeModeForSubzone clears the member flags. Global safe mode, if
// active, still reports every pin safe.
func (m *Manager) DisableSafeModeForSubzone(zoneName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[zoneName]
	if !ok {
		return errcode.UnknownZone
	}
	for _, pin := range z.pins {
		delete(m.safe, pin)
	}
	return nil
}

// IsPinInSafeMode reports the per-pin safe view. While the global flag is
// set every pin reports safe, regardless of reservation.
func (m *Manager) IsPinInSafeMode(pin int) bool {
	if m.global.Load() {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.safe[pin]
}

// IsSubzoneSafe is true iff every member pin currently reports safe. An
// empty or unknown zone is vacuously safe.
func (m *Manager) IsSubzoneSafe(zoneName string) bool {
	global := m.global.Load()
	if global {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[zoneName]
	if !ok {
		return true
	}
	return m.zoneSafeLocked(z, global)
}

// zoneSafeLocked: caller holds m.mu.
func (m *Manager) zoneSafeLocked(z *zone, global bool) bool {
	if global {
		return true
	}
	for _, pin := range z.pins {
		if !m.safe[pin] {
			return false
		}
	}
	return true
}
