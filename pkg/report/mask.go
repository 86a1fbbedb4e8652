package report

// Mask hides the middle of a card number: every character at index i with
// 3 < i < len-6 becomes '*'. The first four and last six stay visible.
func Mask(digits string) string {
	b := []byte(digits)
	for i := range b {
		if i > 3 && i < len(b)-6 {
			b[i] = '*'
		}
	}
	return string(b)
}
