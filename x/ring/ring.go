// Package ring is a fixed-size single-producer, single-consumer byte queue.
// The simulator models peripheral FIFOs with it.
package ring

import "sync/atomic"

// Ring holds up to Cap bytes. One goroutine may write while another reads.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)
}

// New returns an empty ring. size must be a power of two >= 2.
func New(size int) *Ring {
	if size < 2 || size&(size-1) != 0 {
		panic("ring: size must be power of two >= 2")
	}
	return &Ring{buf: make([]byte, size), mask: uint32(size - 1)}
}

func (r *Ring) Cap() int { return len(r.buf) }

// Len is the number of bytes waiting to be read.
func (r *Ring) Len() int { return int(r.wr.Load() - r.rd.Load()) }

func (r *Ring) Space() int { return r.Cap() - r.Len() }

func (r *Ring) Full() bool { return r.Space() == 0 }

// Producer side

// WriteFrom copies as much of src as fits and returns the count.
func (r *Ring) WriteFrom(src []byte) int {
	wr := r.wr.Load()
	n := min(len(src), len(r.buf)-int(wr-r.rd.Load()))
	if n <= 0 {
		return 0
	}
	i := int(wr & r.mask)
	first := copy(r.buf[i:], src[:n])
	copy(r.buf, src[first:n])
	r.wr.Store(wr + uint32(n)) // release
	return n
}

// Push appends one byte, reporting false when the ring is full.
func (r *Ring) Push(b byte) bool {
	one := [1]byte{b}
	return r.WriteFrom(one[:]) == 1
}

// Consumer side

// ReadInto moves up to len(dst) bytes out of the ring.
func (r *Ring) ReadInto(dst []byte) int {
	rd := r.rd.Load()
	n := min(len(dst), int(r.wr.Load()-rd)) // acquire
	if n <= 0 {
		return 0
	}
	i := int(rd & r.mask)
	first := copy(dst[:n], r.buf[i:])
	copy(dst[first:n], r.buf)
	r.rd.Store(rd + uint32(n)) // release
	return n
}

func (r *Ring) Pop() (byte, bool) {
	var b [1]byte
	if r.ReadInto(b[:]) == 0 {
		return 0, false
	}
	return b[0], true
}

// Discard drops everything currently readable.
func (r *Ring) Discard() { r.rd.Store(r.wr.Load()) }
