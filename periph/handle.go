package periph

import (
	"sync/atomic"

	"maxhal/errcode"
	"maxhal/mode"
)

// slot is the shared state behind every copy of a handle. The word packs
// generation<<16 | retired<<8 | mode so a single CAS moves all three.
type slot struct {
	id   ID
	word atomic.Uint64
}

const retiredBit = 1 << 8

func pack(gen uint64, retired bool, m mode.State) uint64 {
	w := gen<<16 | uint64(m)
	if retired {
		w |= retiredBit
	}
	return w
}

// Handle proves possession of one resource in one mode. Consuming
// operations return a new Handle and invalidate every copy of the old one.
// The zero Handle is stale.
type Handle struct {
	s    *slot
	gen  uint64
	mode mode.State
}

func (h Handle) ID() ID {
	if h.s == nil {
		return 0
	}
	return h.s.id
}

// Mode is the mode this handle was issued for.
func (h Handle) Mode() mode.State { return h.mode }

// Check returns StaleHandle unless h is the live handle of its resource.
func (h Handle) Check() error {
	if h.s == nil {
		return errcode.New(errcode.StaleHandle, "periph.Check", "zero handle")
	}
	w := h.s.word.Load()
	switch {
	case w&retiredBit != 0:
		return errcode.New(errcode.StaleHandle, "periph.Check", h.s.id.String()+" retired")
	case w != pack(h.gen, false, h.mode):
		return errcode.New(errcode.StaleHandle, "periph.Check", h.s.id.String())
	}
	return nil
}

// Advance consumes h and returns the live handle for mode m. Of several
// copies racing to advance, exactly one succeeds.
func (h Handle) Advance(m mode.State) (Handle, error) {
	if h.s == nil {
		return Handle{}, errcode.New(errcode.StaleHandle, "periph.Advance", "zero handle")
	}
	old := pack(h.gen, false, h.mode)
	if !h.s.word.CompareAndSwap(old, pack(h.gen+1, false, m)) {
		return Handle{}, errcode.New(errcode.StaleHandle, "periph.Advance", h.s.id.String())
	}
	return Handle{s: h.s, gen: h.gen + 1, mode: m}, nil
}

// Retire consumes h permanently. The resource cannot be claimed again.
func (h Handle) Retire() error {
	if h.s == nil {
		return errcode.New(errcode.StaleHandle, "periph.Retire", "zero handle")
	}
	old := pack(h.gen, false, h.mode)
	if !h.s.word.CompareAndSwap(old, pack(h.gen+1, true, h.mode)) {
		return errcode.New(errcode.StaleHandle, "periph.Retire", h.s.id.String())
	}
	return nil
}

func (h Handle) String() string {
	if h.s == nil {
		return "<nil handle>"
	}
	return h.s.id.String()
}
