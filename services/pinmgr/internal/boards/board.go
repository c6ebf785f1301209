package boards

// Table is one board variant's fixed GPIO capability table, selected at build
// time. It lists wiring facts only (which pins exist and what they may do),
// never runtime policy; the pin manager is parameterised by whichever table
// is active and performs no runtime pin discovery.
type Table struct {
	Name string

	// SafePins are general-purpose pins application drivers may reserve.
	SafePins []int

	// HardwareReserved pins are strapping/boot pins. They must never be
	// driven by application logic and can never be reserved.
	HardwareReserved []int

	// InputOnly pins have no output stage; they accept only input or
	// analog-input reservations.
	InputOnly []int

	// The shared serial bus pair, auto-reserved at boot.
	BusSDA, BusSCL int
}

// Pins returns every pin the table knows about, safe pins first, then
// input-only, then hardware-reserved. The order is fixed per variant.
func (t Table) Pins() []int {
	out := make([]int, 0, len(t.SafePins)+len(t.InputOnly)+len(t.HardwareReserved))
	out = append(out, t.SafePins...)
	out = append(out, t.InputOnly...)
	out = append(out, t.HardwareReserved...)
	return out
}
