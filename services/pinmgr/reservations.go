// services/pinmgr/reservations.go
package pinmgr

import (
	"time"

	"github.com/Auto-one-Family/Automation-One-sub017/errcode"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// modeCompatible checks an electrical mode against a hardware class.
// Hardware-reserved pins are rejected before this is consulted.
func modeCompatible(class types.PinClass, mode types.PinMode) bool {
	if !mode.Valid() {
		return false
	}
	if class == types.ClassInputOnly {
		return mode == types.ModeInput || mode == types.ModeAnalogInput
	}
	return true
}

// RequestPin records a reservation and configures the pin electrically.
// Every failure is a returned code; callers degrade (disable a feature)
// rather than halt.
func (m *Manager) RequestPin(pin int, owner, label string, mode types.PinMode) error {
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
	if !modeCompatible(class, mode) {
		m.mu.Unlock()
		return errcode.ModeIncompatible
	}
	if _, taken := m.res[pin]; taken {
		m.mu.Unlock()
		return errcode.OwnershipConflict
	}
	m.res[pin] = &reservation{owner: owner, label: label, mode: mode, since: time.Now()}
	// The pin leaves the boot-time inert baseline: it is in active use now.
	delete(m.safe, pin)
	m.mu.Unlock()

	// Electrical write happens after the lock is dropped.
	return m.drv.Configure(pin, mode)
}

// ReleasePin removes the reservation. Ownership only: zone membership, if
// any, stays behind for the caller to detach explicitly.
func (m *Manager) ReleasePin(pin int) error {
	m.mu.Lock()
	if _, ok := m.res[pin]; !ok {
		m.mu.Unlock()
		return errcode.NotReserved
	}
	delete(m.res, pin)
	m.mu.Unlock()

	m.drv.Release(pin)
	return nil
}

// ConfigurePinMode re-expresses the electrical mode of an existing
// reservation without changing ownership.
func (m *Manager) ConfigurePinMode(pin int, mode types.PinMode) error {
	m.mu.Lock()
	r, ok := m.res[pin]
	if !ok {
		m.mu.Unlock()
		return errcode.NotReserved
	}
	if !modeCompatible(m.class[pin], mode) {
		m.mu.Unlock()
		return errcode.ModeIncompatible
	}
	r.mode = mode
	delete(m.safe, pin)
	m.mu.Unlock()

	return m.drv.Configure(pin, mode)
}

// PinOwner reports the owning component, or "" for an unreserved pin.
func (m *Manager) PinOwner(pin int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.res[pin]; ok {
		return r.owner
	}
	return ""
}

// PinLabel reports the reservation's human label, or "" when unreserved.
func (m *Manager) PinLabel(pin int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.res[pin]; ok {
		return r.label
	}
	return ""
}

// PinInfo is total: unknown or unreserved pins yield a document with the
// zero values filled in rather than an error.
func (m *Manager) PinInfo(pin int) types.PinInfo {
	global := m.global.Load()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pinInfoLocked(pin, global)
}
