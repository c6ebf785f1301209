//go:build board_esp32_rover

package boards

// Rover carrier board: motor drivers occupy the right-hand header, the I2C
// header is unpopulated (boot calls ReleaseBusPins on this variant).
var Selected = Table{
	Name:             "esp32_rover",
	SafePins:         []int{4, 5, 13, 14, 16, 17, 18, 19, 21, 22, 23, 25, 26, 27},
	HardwareReserved: []int{0, 1, 2, 3, 12, 15},
	InputOnly:        []int{34, 35, 36, 39},
	BusSDA:           21,
	BusSCL:           22,
}
