//go:build !esp32

package strconvx

import "strconv"

// The goal is signature parity with strconv. Delegate straight through,
// except for base-0 prefix detection which must match the MCU build.

func Itoa(i int) string                                   { return strconv.Itoa(i) }
func Atoi(s string) (int, error)                          { return strconv.Atoi(s) }
func FormatInt(i int64, base int) string                  { return strconv.FormatInt(i, base) }
func FormatUint(u uint64, base int) string                { return strconv.FormatUint(u, base) }
func ParseInt(s string, base, bitSize int) (int64, error) {
	return strconv.ParseInt(s, fixBase(s, base), bitSize)
}
func ParseUint(s string, base, bitSize int) (uint64, error) {
	return strconv.ParseUint(s, fixBase(s, base), bitSize)
}

// fixBase resolves base 0 the way the MCU build does: only an explicit
// 0b/0o/0x prefix switches base, a bare leading zero stays decimal.
// strconv would read "075" as octal.
func fixBase(s string, base int) int {
	if base != 0 {
		return base
	}
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) >= 2 && s[0] == '0' {
		switch s[1] {
		case 'b', 'B', 'o', 'O', 'x', 'X':
			return 0
		}
	}
	return 10
}
func FormatFloat(f float64, fmt byte, prec, bitSize int) string {
	return strconv.FormatFloat(f, fmt, prec, bitSize)
}
func ParseFloat(s string, bitSize int) (float64, error) { return strconv.ParseFloat(s, bitSize) }
