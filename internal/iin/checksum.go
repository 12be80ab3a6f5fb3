package iin

var (
	firstPassWeights  = [baseLength]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	secondPassWeights = [baseLength]int{3, 4, 5, 6, 7, 8, 9, 10, 11, 1, 2}
)

// Checksum computes the check digit for an 11-digit base using the two-pass
// weighted modulo-11 scheme. ok is false when the base is malformed or when
// both passes resolve to 10, in which case no legal identifier has that base.
func Checksum(base string) (digit int, ok bool) {
	if len(base) != baseLength || !allDigits(base) {
		return 0, false
	}
	digit = weightedMod11(base, firstPassWeights)
	if digit == 10 {
		digit = weightedMod11(base, secondPassWeights)
	}
	if digit > 9 {
		return 0, false
	}
	return digit, true
}

func weightedMod11(base string, weights [baseLength]int) int {
	sum := 0
	for i := 0; i < baseLength; i++ {
		sum += int(base[i]-'0') * weights[i]
	}
	return sum % 11
}
