package mathx

import "golang.org/x/exp/constraints"

// CeilDiv returns ceil(a/b). Zero divisor yields 0.
func CeilDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// RoundDiv returns floor((a + b/2)/b), classic rounding for positives.
func RoundDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// ExactDiv returns a/b and whether the division left no remainder.
func ExactDiv[T constraints.Unsigned](a, b T) (T, bool) {
	if b == 0 {
		return 0, false
	}
	return a / b, a%b == 0
}
