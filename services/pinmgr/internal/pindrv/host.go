//go:build !esp32

package pindrv

import (
	"sync"

	"tinygo.org/x/drivers"

	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// Electrical states the host driver records.
const (
	StateUnknown = ""
	StateSafe    = "safe"
	StateInput   = "input"
	StateOutput  = "output"
	StateAnalog  = "analog"
	StateBus     = "bus"
)

// Host is the test/host-build driver. It records what the firmware would
// have done to each pin instead of touching hardware.
type Host struct {
	mu         sync.Mutex
	states     map[int]string
	forceCount map[int]int
	i2c        *HostI2C
}

func NewHost() *Host {
	return &Host{
		states:     map[int]string{},
		forceCount: map[int]int{},
	}
}

func (h *Host) ForceSafe(pin int) {
	h.mu.Lock()
	h.states[pin] = StateSafe
	h.forceCount[pin]++
	h.mu.Unlock()
}

func (h *Host) Configure(pin int, mode types.PinMode) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch mode {
	case types.ModeInput:
		h.states[pin] = StateInput
	case types.ModeOutput:
		h.states[pin] = StateOutput
	case types.ModeAnalogInput:
		h.states[pin] = StateAnalog
	default:
		h.states[pin] = StateUnknown
	}
	return nil
}

func (h *Host) Release(pin int) {
	h.mu.Lock()
	h.states[pin] = StateInput
	h.mu.Unlock()
}

func (h *Host) OpenI2C(sda, scl int) (drivers.I2C, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states[sda] = StateBus
	h.states[scl] = StateBus
	if h.i2c == nil {
		h.i2c = &HostI2C{}
	}
	return h.i2c, nil
}

// State reports the last recorded electrical state of a pin.
func (h *Host) State(pin int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.states[pin]
}

// ForceSafeCount reports how many times a pin was forced safe.
func (h *Host) ForceSafeCount(pin int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.forceCount[pin]
}

// HostI2C implements drivers.I2C for host-side tests; it records the last
// transaction and performs no emulation.
type HostI2C struct {
	mu     sync.Mutex
	LastTx struct {
		Addr uint16
		W    []byte
		Rn   int
	}
}

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastTx.Addr = addr
	h.LastTx.W = append([]byte(nil), w...)
	h.LastTx.Rn = len(r)
	return nil
}
