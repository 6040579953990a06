// Package trng reads the MAX7800x true random number generator.
package trng

import (
	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/periph"
	"maxhal/regs"
)

// TRNG is the random number generator. It implements io.Reader.
type TRNG struct {
	h  periph.Handle
	io regs.IO
}

// New ungates the generator clock and takes ownership of h.
func New(h periph.Handle, io regs.IO, tree *clock.Tree) (*TRNG, error) {
	const op = "trng.New"
	if err := h.Check(); err != nil {
		return nil, err
	}
	if h.ID().Kind() != periph.KindTRNG {
		return nil, errcode.New(errcode.UnknownResource, op, h.ID().String())
	}
	gate := chip.GateOf(h.ID())
	if err := tree.CanUngate(gate); err != nil {
		return nil, err
	}
	nh, err := h.Advance(1)
	if err != nil {
		return nil, err
	}
	t := &TRNG{h: nh, io: io}
	return t, tree.Ungate(gate)
}

// Uint32 waits, bounded, for a fresh word.
func (t *TRNG) Uint32() (uint32, error) {
	if err := t.h.Check(); err != nil {
		return 0, err
	}
	if !t.io.WaitSet(regs.Bit(chip.TRNG+chip.TRNGStatus, 0)) {
		return 0, errcode.New(errcode.Timeout, "trng.Uint32", "no entropy")
	}
	return t.io.Read(chip.TRNG + chip.TRNGData), nil
}

func (t *TRNG) Uint64() (uint64, error) {
	lo, err := t.Uint32()
	if err != nil {
		return 0, err
	}
	hi, err := t.Uint32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// Read fills p, taking words least significant byte first.
func (t *TRNG) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		w, err := t.Uint32()
		if err != nil {
			return n, err
		}
		for i := 0; i < 4 && n < len(p); i++ {
			p[n] = byte(w >> (8 * i))
			n++
		}
	}
	return n, nil
}
