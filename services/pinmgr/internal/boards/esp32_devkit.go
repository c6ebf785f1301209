//go:build board_esp32_devkit

package boards

// ESP32 DevKit wiring: GPIO 6-11 (flash) are absent entirely, 0/2/12/15 are
// strapping pins, 34-39 have no output driver. I2C on 21/22.
var Selected = Table{
	Name:             "esp32_devkit",
	SafePins:         []int{4, 5, 14, 15, 16, 17, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33},
	HardwareReserved: []int{0, 1, 2, 3, 12, 13},
	InputOnly:        []int{34, 35, 36, 39},
	BusSDA:           21,
	BusSCL:           22,
}
