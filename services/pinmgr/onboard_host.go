//go:build !esp32

package pinmgr

import (
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr/internal/boards"
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr/internal/pindrv"
)

// NewOnboard builds a manager for the build-selected board variant. Host
// builds get a recording fake instead of real GPIO, so boot code and
// integration tests run unchanged off-target.
func NewOnboard() *Manager {
	return New(boards.Selected, pindrv.NewHost())
}
