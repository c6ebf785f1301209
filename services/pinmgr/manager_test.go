package pinmgr

import (
	"testing"

	"github.com/Auto-one-Family/Automation-One-sub017/errcode"
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr/internal/boards"
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr/internal/pindrv"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// devkit wiring; mirrors the default board table.
var testBoard = boards.Table{
	Name:             "esp32_devkit",
	SafePins:         []int{4, 5, 14, 15, 16, 17, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33},
	HardwareReserved: []int{0, 1, 2, 3, 12, 13},
	InputOnly:        []int{34, 35, 36, 39},
	BusSDA:           21,
	BusSCL:           22,
}

func newTestManager(t *testing.T) (*Manager, *pindrv.Host) {
	t.Helper()
	drv := pindrv.NewHost()
	return New(testBoard, drv), drv
}

// booted runs the boot sequence: inert baseline, then bus auto-reservation.
func booted(t *testing.T) (*Manager, *pindrv.Host) {
	t.Helper()
	m, drv := newTestManager(t)
	m.ForceAllPinsSafe()
	if err := m.AutoReserveBusPins(); err != nil {
		t.Fatalf("AutoReserveBusPins: %v", err)
	}
	return m, drv
}

func wantCode(t *testing.T, err error, want errcode.Code) {
	t.Helper()
	if errcode.Of(err) != want {
		t.Fatalf("got %v, want code %q", err, want)
	}
}

// ---- registry ----

func TestRegistry_Classes(t *testing.T) {
	m, _ := newTestManager(t)

	if !m.IsSafeToUse(4) || m.IsSafeToUse(34) || m.IsSafeToUse(12) || m.IsSafeToUse(40) {
		t.Fatal("IsSafeToUse misclassifies")
	}
	if !m.IsHardwareReserved(0) || m.IsHardwareReserved(4) {
		t.Fatal("IsHardwareReserved misclassifies")
	}
	if !m.IsInputOnly(39) || m.IsInputOnly(4) {
		t.Fatal("IsInputOnly misclassifies")
	}
	if got, want := m.TotalPinCount(), 26; got != want {
		t.Fatalf("TotalPinCount = %d, want %d", got, want)
	}
}

func TestRegistry_AvailableCount(t *testing.T) {
	m, _ := newTestManager(t)

	// 16 safe + 4 input-only reservable pins.
	if got := m.AvailablePinCount(); got != 20 {
		t.Fatalf("available = %d, want 20", got)
	}
	if err := m.RequestPin(4, "sensorA", "temp", types.ModeInput); err != nil {
		t.Fatal(err)
	}
	if got := m.AvailablePinCount(); got != 19 {
		t.Fatalf("available after request = %d, want 19", got)
	}
}

// ---- reservation rules ----

func TestRequestPin_HardwareReservedAlwaysFails(t *testing.T) {
	m, _ := newTestManager(t)
	for _, pin := range testBoard.HardwareReserved {
		for _, mode := range []types.PinMode{types.ModeInput, types.ModeOutput, types.ModeAnalogInput} {
			wantCode(t, m.RequestPin(pin, "anyone", "x", mode), errcode.HardwareConflict)
		}
	}
}

func TestRequestPin_OwnershipLifecycle(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.RequestPin(4, "sensorA", "temp", types.ModeInput); err != nil {
		t.Fatalf("first request: %v", err)
	}
	wantCode(t, m.RequestPin(4, "sensorB", "temp2", types.ModeInput), errcode.OwnershipConflict)
	// Repeat by the same owner is still a conflict: one reservation per pin.
	wantCode(t, m.RequestPin(4, "sensorA", "temp", types.ModeInput), errcode.OwnershipConflict)

	if err := m.ReleasePin(4); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := m.RequestPin(4, "sensorB", "temp2", types.ModeOutput); err != nil {
		t.Fatalf("request after release: %v", err)
	}
}

func TestRequestPin_InputOnlyModes(t *testing.T) {
	m, _ := newTestManager(t)
	for _, pin := range testBoard.InputOnly {
		wantCode(t, m.RequestPin(pin, "a", "x", types.ModeOutput), errcode.ModeIncompatible)
	}
	if err := m.RequestPin(34, "a", "ldr", types.ModeInput); err != nil {
		t.Fatal(err)
	}
	if err := m.RequestPin(35, "a", "vbat", types.ModeAnalogInput); err != nil {
		t.Fatal(err)
	}
}

func TestRequestPin_UnknownPin(t *testing.T) {
	m, _ := newTestManager(t)
	wantCode(t, m.RequestPin(6, "a", "x", types.ModeInput), errcode.UnknownPin)
	wantCode(t, m.RequestPin(99, "a", "x", types.ModeInput), errcode.UnknownPin)
}

func TestReleasePin_NotReserved(t *testing.T) {
	m, _ := newTestManager(t)
	wantCode(t, m.ReleasePin(4), errcode.NotReserved)
	// Release is not idempotent: the second call is a defined failure.
	if err := m.RequestPin(4, "a", "x", types.ModeInput); err != nil {
		t.Fatal(err)
	}
	if err := m.ReleasePin(4); err != nil {
		t.Fatal(err)
	}
	wantCode(t, m.ReleasePin(4), errcode.NotReserved)
}

func TestConfigurePinMode(t *testing.T) {
	m, drv := newTestManager(t)

	wantCode(t, m.ConfigurePinMode(4, types.ModeOutput), errcode.NotReserved)

	if err := m.RequestPin(4, "relay", "pump", types.ModeOutput); err != nil {
		t.Fatal(err)
	}
	if err := m.ConfigurePinMode(4, types.ModeInput); err != nil {
		t.Fatal(err)
	}
	if got := drv.State(4); got != pindrv.StateInput {
		t.Fatalf("pin 4 state = %q, want input", got)
	}
	if info := m.PinInfo(4); info.Mode != types.ModeInput || info.Owner != "relay" {
		t.Fatalf("configure changed ownership: %+v", info)
	}

	if err := m.RequestPin(34, "ldr", "light", types.ModeInput); err != nil {
		t.Fatal(err)
	}
	wantCode(t, m.ConfigurePinMode(34, types.ModeOutput), errcode.ModeIncompatible)
}

// ---- total queries ----

func TestQueries_AreTotal(t *testing.T) {
	m, _ := newTestManager(t)

	if m.PinOwner(4) != "" || m.PinLabel(4) != "" {
		t.Fatal("unreserved pin should report empty owner/label")
	}
	info := m.PinInfo(99)
	if info.Pin != 99 || info.Reserved || info.Class != "" {
		t.Fatalf("unknown pin info = %+v", info)
	}

	if err := m.RequestPin(27, "heater", "bed", types.ModeOutput); err != nil {
		t.Fatal(err)
	}
	if m.PinOwner(27) != "heater" || m.PinLabel(27) != "bed" {
		t.Fatal("owner/label not reported")
	}
	info = m.PinInfo(27)
	if !info.Reserved || info.Mode != types.ModeOutput || info.Since.IsZero() {
		t.Fatalf("reserved pin info = %+v", info)
	}
}

// ---- boot sequencing & bus pins ----

func TestBoot_BaselineAndBusPins(t *testing.T) {
	m, drv := booted(t)

	for _, pin := range testBoard.SafePins {
		if pin == testBoard.BusSDA || pin == testBoard.BusSCL {
			continue
		}
		if !m.IsPinInSafeMode(pin) {
			t.Fatalf("pin %d not safe after boot", pin)
		}
		if got := drv.State(pin); got != pindrv.StateSafe {
			t.Fatalf("pin %d electrical state %q after boot", pin, got)
		}
	}
	for _, pin := range testBoard.HardwareReserved {
		if drv.ForceSafeCount(pin) != 0 {
			t.Fatalf("strapping pin %d was written", pin)
		}
	}

	for _, pin := range []int{testBoard.BusSDA, testBoard.BusSCL} {
		if m.PinOwner(pin) != BusOwner {
			t.Fatalf("bus pin %d owner = %q", pin, m.PinOwner(pin))
		}
		if m.IsPinInSafeMode(pin) {
			t.Fatalf("bus pin %d still flagged safe", pin)
		}
		if got := drv.State(pin); got != pindrv.StateBus {
			t.Fatalf("bus pin %d state %q, want bus", pin, got)
		}
	}

	if _, err := m.BusConn(); err != nil {
		t.Fatalf("BusConn after boot: %v", err)
	}

	// The pair is not up for grabs.
	wantCode(t, m.RequestPin(21, "rogue", "x", types.ModeOutput), errcode.OwnershipConflict)
}

func TestReleaseBusPins(t *testing.T) {
	m, _ := booted(t)

	if err := m.ReleaseBusPins(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.BusConn(); err == nil {
		t.Fatal("BusConn should fail after ReleaseBusPins")
	}
	// Variant without a bus: pins become ordinary safe pins.
	if err := m.RequestPin(21, "servo", "pan", types.ModeOutput); err != nil {
		t.Fatal(err)
	}
	wantCode(t, m.ReleaseBusPins(), errcode.OwnershipConflict)
}

func TestReleaseBusPins_NotReserved(t *testing.T) {
	m, _ := newTestManager(t)
	wantCode(t, m.ReleaseBusPins(), errcode.NotReserved)
}

// ---- factory reset ----

func TestReset(t *testing.T) {
	m, _ := booted(t)
	if err := m.RequestPin(4, "a", "x", types.ModeOutput); err != nil {
		t.Fatal(err)
	}
	if err := m.AssignPinToSubzone(4, "greenhouse"); err != nil {
		t.Fatal(err)
	}
	m.EnableSafeModeForAllPins("test")

	m.Reset()

	if m.PinOwner(4) != "" || m.PinOwner(21) != "" {
		t.Fatal("reservations survived reset")
	}
	if m.IsPinAssignedToSubzone(4, "greenhouse") {
		t.Fatal("zone membership survived reset")
	}
	if m.GlobalSafeMode().Active {
		t.Fatal("global safe mode survived reset")
	}
	if !m.IsPinInSafeMode(4) {
		t.Fatal("baseline not re-established")
	}
	if err := m.AutoReserveBusPins(); err != nil {
		t.Fatalf("bus re-reservation after reset: %v", err)
	}
}

// ---- spec'd end-to-end scenario ----

func TestScenario_DevkitBoot(t *testing.T) {
	m, _ := booted(t)

	wantCode(t, m.RequestPin(1, "x", "y", types.ModeInput), errcode.HardwareConflict)
	if err := m.RequestPin(4, "sensorA", "temp", types.ModeInput); err != nil {
		t.Fatal(err)
	}
	wantCode(t, m.RequestPin(4, "sensorB", "temp2", types.ModeInput), errcode.OwnershipConflict)
	if err := m.ReleasePin(4); err != nil {
		t.Fatal(err)
	}
	wantCode(t, m.RequestPin(34, "sensorC", "light", types.ModeOutput), errcode.ModeIncompatible)
	if err := m.RequestPin(34, "sensorC", "light", types.ModeInput); err != nil {
		t.Fatal(err)
	}
}
