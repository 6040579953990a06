package mathx

import "golang.org/x/exp/constraints"

// IsPow2 reports whether v is a non-zero power of two.
func IsPow2[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}

// Log2 returns floor(log2(v)); Log2(0) is 0.
func Log2[T constraints.Unsigned](v T) uint8 {
	var n uint8
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// Pow2 returns 1<<n as T.
func Pow2[T constraints.Unsigned](n uint8) T {
	return T(1) << n
}
