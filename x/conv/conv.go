// Package conv formats integers into caller buffers without fmt or
// strconv, for firmware output paths.
package conv

const digits = "0123456789ABCDEF"

// Utoa writes n in base 10 at the end of buf and returns that tail.
// 20 bytes hold any uint64; a shorter buf keeps the low digits.
func Utoa(buf []byte, n uint64) []byte { return format(buf, n, 10, 1) }

// Hex32 writes n as eight upper-case hex digits, zero-padded, no prefix.
func Hex32(buf []byte, n uint32) []byte { return format(buf, uint64(n), 16, 8) }

func format(buf []byte, n, base uint64, width int) []byte {
	i := len(buf)
	for i > 0 && (n > 0 || len(buf)-i < width) {
		i--
		buf[i] = digits[n%base]
		n /= base
	}
	return buf[i:]
}
