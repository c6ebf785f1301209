//go:build esp32

package pinmgr

import (
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr/internal/boards"
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr/internal/pindrv"
)

// NewOnboard builds a manager for the build-selected board variant on the
// real GPIO matrix.
func NewOnboard() *Manager {
	return New(boards.Selected, pindrv.NewESP32())
}
