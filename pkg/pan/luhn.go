package pan

import "fmt"

// LuhnValid reports whether digits pass the Luhn checksum. A sequence whose
// first digit is zero never validates: no issuer range starts with 0 and the
// window treats a leading zero as unpopulated.
func LuhnValid(digits []uint8) bool {
	if len(digits) == 0 || digits[0] == 0 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i])
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// CheckDigit returns the digit that makes payload followed by it pass Luhn.
func CheckDigit(payload []uint8) uint8 {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i])
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return uint8((10 - sum%10) % 10)
}

// ParseDigits converts a human-entered card number to digit values.
// Spaces and dashes are skipped; anything else is an error.
func ParseDigits(s string) ([]uint8, error) {
	digits := make([]uint8, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isDigit(c):
			digits = append(digits, c-'0')
		case c == ' ' || c == '-':
		default:
			return nil, fmt.Errorf("invalid character %q at position %d", c, i)
		}
	}
	return digits, nil
}

// FormatDigits renders digit values as ASCII.
func FormatDigits(digits []uint8) string {
	b := make([]byte, len(digits))
	for i, d := range digits {
		b[i] = '0' + d
	}
	return string(b)
}
