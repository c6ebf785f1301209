package pindrv

import (
	"tinygo.org/x/drivers"

	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// Driver is the electrical write surface the pin manager drives. Calls are
// pin-level and self-synchronising; the manager never holds its own lock
// across them. ForceSafe must be callable at any time, in any state, for any
// pin number, and must not fail.
type Driver interface {
	// ForceSafe drives the pin into its inert electrical state.
	ForceSafe(pin int)

	// Configure applies the reservation's electrical mode.
	Configure(pin int, mode types.PinMode) error

	// Release returns the pin to a plain floating input.
	Release(pin int)
}

// BusProvider hands the auto-reserved bus pin pair over to the serial bus
// peripheral. Implemented by drivers on targets that have the bus wired.
type BusProvider interface {
	OpenI2C(sda, scl int) (drivers.I2C, error)
}
