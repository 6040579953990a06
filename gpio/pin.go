package gpio

import (
	"maxhal/board"
	"maxhal/chip"
	"maxhal/errcode"
	"maxhal/internal/logx"
	"maxhal/mode"
	"maxhal/periph"
	"maxhal/regs"
)

// pin is the state every mode type carries.
type pin struct {
	h     periph.Handle
	port  uint8
	n     uint8
	io    regs.IO
	table *board.Table
}

// ID returns the pin identity, e.g. P0.5.
func (p pin) ID() periph.ID { return periph.Pin(p.port, p.n) }

// Check returns StaleHandle if this value has been consumed.
func (p pin) Check() error { return p.h.Check() }

// Retire gives the pin up for good.
func (p pin) Retire() error { return p.h.Retire() }

// Dyn returns a dynamically checked view of the same handle.
func (p pin) Dyn() Dyn { return Dyn{p} }

func (p pin) String() string { return p.ID().String() + "(" + Graph.Name(p.h.Mode()) + ")" }

func (p pin) mask() uint32 { return 1 << p.n }

func (p pin) reg(off uint32) uint32 { return chip.GPIOBase(p.port) + off }

// set and clr use the atomic write-1 aliases.
func (p pin) set(off uint32) { p.io.Write(p.reg(off)+chip.GPIOSet, p.mask()) }
func (p pin) clr(off uint32) { p.io.Write(p.reg(off)+chip.GPIOClr, p.mask()) }

func (p pin) put(off uint32, on bool) {
	if on {
		p.io.SetBits(p.reg(off), p.mask())
	} else {
		p.io.ClearBits(p.reg(off), p.mask())
	}
}

func (p pin) bit(off uint32) bool { return p.io.Read(p.reg(off))&p.mask() != 0 }

// advance validates the edge and consumes the handle. No register has been
// written when it fails.
func (p pin) advance(op string, to mode.State) (pin, error) {
	if err := Graph.Check(p.h.Mode(), to); err != nil {
		return pin{}, errcode.Wrap(errcode.IllegalTransition, op, err)
	}
	h, err := p.h.Advance(to)
	if err != nil {
		return pin{}, err
	}
	logx.Debug(logx.ComponentGPIO, "transition", "pin", p.ID().String(),
		"from", Graph.Name(p.h.Mode()), "to", Graph.Name(to))
	next := p
	next.h = h
	return next, nil
}

// gpioFunction hands the pad to the GPIO block.
func (p pin) gpioFunction() {
	p.set(chip.GPIOEn0)
	p.clr(chip.GPIOEn1)
	p.clr(chip.GPIOEn2)
}

// altFunction selects af, passing through GPIO mode so the pad never sits
// on an unintended function.
func (p pin) altFunction(af uint8) {
	p.set(chip.GPIOEn0)
	sel := af - 1
	if sel&1 != 0 {
		p.set(chip.GPIOEn1)
	} else {
		p.clr(chip.GPIOEn1)
	}
	if sel&2 != 0 {
		p.set(chip.GPIOEn2)
	} else {
		p.clr(chip.GPIOEn2)
	}
	p.clr(chip.GPIOEn0)
}

func (p pin) writePull(pl Pull) {
	up := pl == PullUp || pl == PullUpWeak
	down := pl == PullDown || pl == PullDownWeak
	weak := pl == PullUpWeak || pl == PullDownWeak
	p.put(chip.GPIOPadCtrl0, up)
	p.put(chip.GPIOPadCtrl1, down)
	p.put(chip.GPIOPS, weak)
}

func (p pin) writeDrive(d Drive) {
	p.put(chip.GPIODS0, d&1 != 0)
	p.put(chip.GPIODS1, d&2 != 0)
}

func (p pin) writeSupply(s Supply) { p.put(chip.GPIOVSSel, s == SupplyVDDIOH) }

func (p pin) applyReset() {
	p.clr(chip.GPIOOutEn)
	p.clr(chip.GPIOOut)
	p.gpioFunction()
	p.put(chip.GPIOInEn, true)
	p.writePull(PullNone)
	p.writeDrive(DriveLow)
	p.writeSupply(SupplyVDDIO)
}

func (p pin) applyInput(c InputConfig) {
	p.clr(chip.GPIOOutEn)
	p.gpioFunction()
	p.writeSupply(c.Supply)
	p.writePull(c.Pull)
	p.put(chip.GPIOInEn, true)
}

func (p pin) applyOutput(c OutputConfig) {
	if c.Initial {
		p.set(chip.GPIOOut)
	} else {
		p.clr(chip.GPIOOut)
	}
	p.gpioFunction()
	p.writeSupply(c.Supply)
	p.writeDrive(c.Drive)
	p.writePull(PullNone)
	p.set(chip.GPIOOutEn)
}

func (p pin) applyAnalog() {
	p.clr(chip.GPIOOutEn)
	p.gpioFunction()
	p.writePull(PullNone)
	p.put(chip.GPIOInEn, false)
}

func (p pin) applyAlternate(c AltConfig) {
	p.clr(chip.GPIOOutEn)
	p.writeSupply(c.Supply)
	p.writeDrive(c.Drive)
	p.writePull(c.Pull)
	p.put(chip.GPIOInEn, true)
	p.altFunction(c.AF)
}

func (p pin) applyDisabled() {
	p.clr(chip.GPIOOutEn)
	p.gpioFunction()
	p.writePull(PullNone)
	p.put(chip.GPIOInEn, false)
}
