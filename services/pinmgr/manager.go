// services/pinmgr/manager.go
package pinmgr

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"

	"github.com/Auto-one-Family/Automation-One-sub017/errcode"
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr/internal/boards"
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr/internal/pindrv"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// BusOwner is the fixed internal owner of the auto-reserved bus pins.
const BusOwner = "system_i2c"

type reservation struct {
	owner string
	label string
	mode  types.PinMode
	since time.Time
}

type zone struct {
	name string
	pins []int // insertion order
}

type globalSafe struct {
	reason string
	since  time.Time
}

// Manager owns the reservation table, subzone index and safe-mode flags for
// one physical board. All mutating access is serialised through a single
// short-held mutex; the lock protects the in-memory maps only and is never
// held across a pin-level electrical write. The global safe-mode flag lives
// outside the lock entirely (atomics), so the emergency path cannot be
// blocked by any other operation.
type Manager struct {
	board boards.Table
	drv   pindrv.Driver

	// Immutable after New.
	class map[int]types.PinClass
	sweep []int // every non-hardware-reserved pin, fixed order

	mu     sync.Mutex
	res    map[int]*reservation
	zones  map[string]*zone
	zoneOf map[int]string
	safe   map[int]bool

	global     atomic.Bool
	globalInfo atomic.Pointer[globalSafe]

	busI2C      drivers.I2C
	busReleased bool
}

// New builds a manager for the given board table. Nothing is written to
// hardware until ForceAllPinsSafe runs.
func New(board boards.Table, drv pindrv.Driver) *Manager {
	m := &Manager{
		board:  board,
		drv:    drv,
		class:  make(map[int]types.PinClass),
		res:    make(map[int]*reservation),
		zones:  make(map[string]*zone),
		zoneOf: make(map[int]string),
		safe:   make(map[int]bool),
	}
	for _, p := range board.SafePins {
		m.class[p] = types.ClassStandard
	}
	for _, p := range board.InputOnly {
		m.class[p] = types.ClassInputOnly
	}
	for _, p := range board.HardwareReserved {
		m.class[p] = types.ClassHardwareReserved
	}
	for _, p := range board.Pins() {
		if m.class[p] != types.ClassHardwareReserved {
			m.sweep = append(m.sweep, p)
		}
	}
	return m
}

// Board returns the active capability table.
func (m *Manager) Board() boards.Table { return m.board }

// -----------------------------------------------------------------------------
// Registry queries (immutable capability table)
// -----------------------------------------------------------------------------

// IsSafeToUse reports whether the pin is a general-purpose pin drivers may
// freely reserve in any mode.
func (m *Manager) IsSafeToUse(pin int) bool {
	return m.class[pin] == types.ClassStandard
}

// IsHardwareReserved reports whether the pin is a strapping/boot pin.
func (m *Manager) IsHardwareReserved(pin int) bool {
	return m.class[pin] == types.ClassHardwareReserved
}

// IsInputOnly reports whether the pin lacks an output stage.
func (m *Manager) IsInputOnly(pin int) bool {
	return m.class[pin] == types.ClassInputOnly
}

// TotalPinCount is the number of pins the board table describes.
func (m *Manager) TotalPinCount() int { return len(m.class) }

// AvailablePinCount is the number of reservable pins with no active
// reservation.
func (m *Manager) AvailablePinCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for pin, c := range m.class {
		if c == types.ClassHardwareReserved {
			continue
		}
		if _, taken := m.res[pin]; !taken {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------
// Boot sequencing
// -----------------------------------------------------------------------------

// ForceAllPinsSafe establishes the known-inert baseline. It runs once at
// boot, before any other component, and drives every non-hardware-reserved
// pin into its safe state. Strapping pins are never written.
func (m *Manager) ForceAllPinsSafe() {
	for _, pin := range m.sweep {
		m.drv.ForceSafe(pin)
	}
	m.mu.Lock()
	for _, pin := range m.sweep {
		m.safe[pin] = true
	}
	m.mu.Unlock()
}

// AutoReserveBusPins claims the board's bus pin pair under BusOwner. It runs
// immediately after ForceAllPinsSafe, before any driver initialiser, so bus
// availability can never be lost to a race with ordinary boot requests. The
// two pins leave safe state: they now belong to the bus peripheral.
func (m *Manager) AutoReserveBusPins() error {
	now := time.Now()

	m.mu.Lock()
	if m.busReleased {
		m.mu.Unlock()
		return errcode.UnknownBus
	}
	for _, pin := range []int{m.board.BusSDA, m.board.BusSCL} {
		if r, taken := m.res[pin]; taken {
			if r.owner == BusOwner {
				continue
			}
			m.mu.Unlock()
			return errcode.OwnershipConflict
		}
	}
	m.res[m.board.BusSDA] = &reservation{owner: BusOwner, label: "i2c-data", mode: types.ModeOutput, since: now}
	m.res[m.board.BusSCL] = &reservation{owner: BusOwner, label: "i2c-clock", mode: types.ModeOutput, since: now}
	delete(m.safe, m.board.BusSDA)
	delete(m.safe, m.board.BusSCL)
	m.mu.Unlock()

	if bp, ok := m.drv.(pindrv.BusProvider); ok {
		i2c, err := bp.OpenI2C(m.board.BusSDA, m.board.BusSCL)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.busI2C = i2c
		m.mu.Unlock()
	}
	return nil
}

// ReleaseBusPins is the escape hatch for board variants that never use the
// bus. If called at all it must run before any other component tries to
// claim the pair.
func (m *Manager) ReleaseBusPins() error {
	m.mu.Lock()
	sda, scl := m.board.BusSDA, m.board.BusSCL
	rs, rc := m.res[sda], m.res[scl]
	if rs == nil && rc == nil {
		m.mu.Unlock()
		return errcode.NotReserved
	}
	if (rs != nil && rs.owner != BusOwner) || (rc != nil && rc.owner != BusOwner) {
		m.mu.Unlock()
		return errcode.OwnershipConflict
	}
	delete(m.res, sda)
	delete(m.res, scl)
	m.busI2C = nil
	m.busReleased = true
	m.mu.Unlock()

	m.drv.Release(sda)
	m.drv.Release(scl)
	return nil
}

// BusConn returns the shared bus handle the auto-reserved pins were handed
// to. Driver components use it instead of claiming the pins themselves.
func (m *Manager) BusConn() (drivers.I2C, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busI2C == nil {
		return nil, errcode.UnknownBus
	}
	return m.busI2C, nil
}

// Reset performs a factory reset: every reservation and zone membership is
// dropped and the inert baseline is re-established. Boot sequencing is
// responsible for re-reserving the bus pins afterwards.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.res = make(map[int]*reservation)
	m.zones = make(map[string]*zone)
	m.zoneOf = make(map[int]string)
	m.safe = make(map[int]bool)
	m.busI2C = nil
	m.busReleased = false
	m.mu.Unlock()

	m.global.Store(false)
	m.globalInfo.Store(nil)
	m.ForceAllPinsSafe()
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// Status assembles the full status dump for telemetry.
func (m *Manager) Status() types.PinsStatus {
	global := m.global.Load()

	m.mu.Lock()
	st := types.PinsStatus{
		Board: m.board.Name,
		Total: len(m.class),
	}
	for pin, c := range m.class {
		if c == types.ClassHardwareReserved {
			continue
		}
		if _, taken := m.res[pin]; !taken {
			st.Available++
		}
	}
	for pin := range m.res {
		st.Reserved = append(st.Reserved, m.pinInfoLocked(pin, global))
	}
	for name, z := range m.zones {
		st.Zones = append(st.Zones, types.ZoneInfo{
			Zone: name,
			Pins: append([]int(nil), z.pins...),
			Safe: m.zoneSafeLocked(z, global),
		})
	}
	m.mu.Unlock()

	sort.Slice(st.Reserved, func(i, j int) bool { return st.Reserved[i].Pin < st.Reserved[j].Pin })
	sort.Slice(st.Zones, func(i, j int) bool { return st.Zones[i].Zone < st.Zones[j].Zone })
	st.SafeMode = m.GlobalSafeMode()
	return st
}

// GlobalSafeMode describes the global flag.
func (m *Manager) GlobalSafeMode() types.SafeModeStatus {
	if !m.global.Load() {
		return types.SafeModeStatus{}
	}
	st := types.SafeModeStatus{Active: true}
	if gi := m.globalInfo.Load(); gi != nil {
		st.Reason = gi.reason
		st.Since = gi.since
	}
	return st
}

// pinInfoLocked builds the total per-pin document. Caller holds m.mu.
func (m *Manager) pinInfoLocked(pin int, global bool) types.PinInfo {
	info := types.PinInfo{
		Pin:   pin,
		Class: m.class[pin],
		Safe:  global || m.safe[pin],
		Zone:  m.zoneOf[pin],
	}
	if r, ok := m.res[pin]; ok {
		info.Reserved = true
		info.Owner = r.owner
		info.Label = r.label
		info.Mode = r.mode
		info.Since = r.since
	}
	return info
}
