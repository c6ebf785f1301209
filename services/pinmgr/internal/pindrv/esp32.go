//go:build esp32

package pindrv

import (
	"sync"

	"machine"

	"tinygo.org/x/drivers"

	"github.com/Auto-one-Family/Automation-One-sub017/errcode"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// ESP32 pin driver. The safe state is input-with-pulldown: nothing floats,
// nothing drives. Strapping pins are filtered out above this layer; this
// driver performs whatever write it is asked for.
type ESP32 struct{}

func NewESP32() *ESP32 { return &ESP32{} }

func (d *ESP32) ForceSafe(pin int) {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
}

func (d *ESP32) Configure(pin int, mode types.PinMode) error {
	p := machine.Pin(pin)
	switch mode {
	case types.ModeInput, types.ModeAnalogInput:
		// Analog routing is owned by the consuming driver's ADC setup; at
		// pin level both are a plain input.
		p.Configure(machine.PinConfig{Mode: machine.PinInput})
	case types.ModeOutput:
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	default:
		return errcode.ModeIncompatible
	}
	return nil
}

func (d *ESP32) Release(pin int) {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInput})
}

func (d *ESP32) OpenI2C(sda, scl int) (drivers.I2C, error) {
	hw := machine.I2C0
	err := hw.Configure(machine.I2CConfig{
		SDA:       machine.Pin(sda),
		SCL:       machine.Pin(scl),
		Frequency: 400_000,
	})
	if err != nil {
		return nil, &errcode.E{C: errcode.UnknownBus, Op: "i2c.configure", Err: err}
	}
	return &mcuI2C{hw: hw}, nil
}

// mcuI2C serialises bus transactions from concurrent driver tasks.
type mcuI2C struct {
	mu sync.Mutex
	hw *machine.I2C
}

var _ drivers.I2C = (*mcuI2C)(nil)

func (b *mcuI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hw.Tx(addr, w, r)
}
