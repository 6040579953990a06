// Package icc controls the instruction cache.
package icc

import (
	"maxhal/chip"
	"maxhal/errcode"
	"maxhal/periph"
	"maxhal/regs"
)

type ICC struct {
	h  periph.Handle
	io regs.IO
}

func New(h periph.Handle, io regs.IO) (*ICC, error) {
	if err := h.Check(); err != nil {
		return nil, err
	}
	if h.ID().Kind() != periph.KindICC {
		return nil, errcode.New(errcode.UnknownResource, "icc.New", h.ID().String())
	}
	nh, err := h.Advance(1)
	if err != nil {
		return nil, err
	}
	return &ICC{h: nh, io: io}, nil
}

var ready = regs.Bit(chip.ICC0+chip.ICCCtrl, chip.ICCReadyBit)

// Enable invalidates the cache and turns it on.
func (c *ICC) Enable() error {
	const op = "icc.Enable"
	if err := c.Disable(); err != nil {
		return err
	}
	c.io.Write(chip.ICC0+chip.ICCInvalidate, 1)
	if !c.io.WaitSet(ready) {
		return errcode.New(errcode.NotReady, op, "invalidate")
	}
	c.io.SetBits(chip.ICC0+chip.ICCCtrl, chip.ICCEnable)
	if !c.io.WaitSet(ready) {
		return errcode.New(errcode.NotReady, op, "enable")
	}
	return nil
}

func (c *ICC) Disable() error {
	if err := c.h.Check(); err != nil {
		return err
	}
	c.io.ClearBits(chip.ICC0+chip.ICCCtrl, chip.ICCEnable)
	return nil
}

func (c *ICC) Enabled() bool {
	return c.io.Read(chip.ICC0+chip.ICCCtrl)&chip.ICCEnable != 0
}
