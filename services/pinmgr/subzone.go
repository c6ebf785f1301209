// services/pinmgr/subzone.go
package pinmgr

import (
	"github.com/Auto-one-Family/Automation-One-sub017/errcode"
)

// AssignPinToSubzone attaches a reserved pin to a zone. A pin belongs to at
// most one zone; moving it requires an explicit RemovePinFromSubzone first,
// so a pin is never silently re-homed. Assigning a pin to the zone it is
// already in succeeds and keeps its position.
func (m *Manager) AssignPinToSubzone(pin int, zoneName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, reserved := m.res[pin]; !reserved {
		return errcode.NotReserved
	}
	if cur, ok := m.zoneOf[pin]; ok {
		if cur == zoneName {
			return nil
		}
		return errcode.ZoneConflict
	}

	z, ok := m.zones[zoneName]
	if !ok {
		z = &zone{name: zoneName}
		m.zones[zoneName] = z
	}
	z.pins = append(z.pins, pin)
	m.zoneOf[pin] = zoneName
	return nil
}

// RemovePinFromSubzone detaches membership without touching the underlying
// reservation. It keys on membership, not reservation, because release
// deliberately leaves membership behind for this call to clean up. The zone
// entry itself survives empty; membership, not existence, is what queries
// care about.
func (m *Manager) RemovePinFromSubzone(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	zoneName, ok := m.zoneOf[pin]
	if !ok {
		return errcode.NotReserved
	}
	delete(m.zoneOf, pin)
	z := m.zones[zoneName]
	for i, p := range z.pins {
		if p == pin {
			z.pins = append(z.pins[:i], z.pins[i+1:]...)
			break
		}
	}
	return nil
}

// SubzonePins returns the zone's members in insertion order, or nil for an
// unknown zone.
func (m *Manager) SubzonePins(zoneName string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[zoneName]
	if !ok {
		return nil
	}
	return append([]int(nil), z.pins...)
}

// IsPinAssignedToSubzone reports zone membership.
func (m *Manager) IsPinAssignedToSubzone(pin int, zoneName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zoneOf[pin] == zoneName
}
