//go:build !board_esp32_devkit && !board_esp32_rover

package boards

// Host builds and tests get the devkit table.
var Selected = Table{
	Name:             "esp32_devkit",
	SafePins:         []int{4, 5, 14, 15, 16, 17, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33},
	HardwareReserved: []int{0, 1, 2, 3, 12, 13},
	InputOnly:        []int{34, 35, 36, 39},
	BusSDA:           21,
	BusSCL:           22,
}
