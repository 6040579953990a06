// Package timer configures the MAX7800x 32-bit timers as typestate
// handles: one-shot, continuous and PWM modes are distinct types.
package timer

import (
	"fmt"

	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/internal/logx"
	"maxhal/mode"
	"maxhal/periph"
	"maxhal/regs"
	"maxhal/x/mathx"
)

// Timer modes.
const (
	ModeUnconfigured mode.State = iota
	ModeOneShot
	ModeContinuous
	ModePWM
	ModeDisabled
)

// Graph is the legal timer transition graph.
var Graph = mode.Register(
	mode.New("timer", "Unconfigured", "OneShot", "Continuous", "PWM", "Disabled").
		Allow(ModeUnconfigured, ModeOneShot, ModeContinuous, ModePWM, ModeDisabled).
		Allow(ModeOneShot, ModeUnconfigured, ModeContinuous, ModeDisabled).
		Allow(ModeContinuous, ModeUnconfigured, ModeOneShot, ModeDisabled).
		Allow(ModePWM, ModeUnconfigured, ModeDisabled).
		Allow(ModeDisabled, ModeUnconfigured),
)

// MaxPrescale is the largest tick divider, 2^12.
const MaxPrescale = 4096

type timer struct {
	h    periph.Handle
	n    uint8
	io   regs.IO
	tree *clock.Tree
	tick clock.Hz
}

func (t timer) ID() periph.ID { return t.h.ID() }

func (t timer) Check() error { return t.h.Check() }

func (t timer) Retire() error { return t.h.Retire() }

func (t timer) String() string { return t.ID().String() + "(" + Graph.Name(t.h.Mode()) + ")" }

func (t timer) reg(off uint32) uint32 { return chip.TimerBase(t.n) + off }

// New opens the timer clock gate and returns the timer in Unconfigured
// mode. The handle must be a TMRn handle in Unconfigured mode.
func New(h periph.Handle, io regs.IO, tree *clock.Tree) (Unconfigured, error) {
	const op = "timer.New"
	if err := h.Check(); err != nil {
		return Unconfigured{}, err
	}
	id := h.ID()
	if id.Kind() != periph.KindTimer || id.Unit() >= chip.NumTimers {
		return Unconfigured{}, errcode.New(errcode.UnknownResource, op, id.String())
	}
	if h.Mode() != ModeUnconfigured {
		return Unconfigured{}, errcode.New(errcode.UnsupportedMode, op, id.String()+" is "+Graph.Name(h.Mode()))
	}
	if err := tree.Ungate(chip.GateOf(id)); err != nil {
		return Unconfigured{}, err
	}
	return Unconfigured{timer{h: h, n: id.Unit(), io: io, tree: tree}}, nil
}

// Config sets the count rate and the period of a counting mode.
type Config struct {
	// Tick is the counter rate. Zero counts at the peripheral clock.
	Tick clock.Hz
	// Period is the compare value in ticks.
	Period uint32
}

// PWMConfig adds the duty cycle, in ticks, and the output polarity.
type PWMConfig struct {
	Tick      clock.Hz
	Period    uint32
	Duty      uint32
	ActiveLow bool
}

// prescale returns the CLKDIV code for tick at pclk.
func prescale(op string, pclk, tick clock.Hz) (uint32, error) {
	if tick == 0 {
		return 0, nil
	}
	div, ok := mathx.ExactDiv(uint32(pclk), uint32(tick))
	if !ok || !mathx.IsPow2(div) || div > MaxPrescale {
		return 0, errcode.New(errcode.InvalidDescriptor, op,
			fmt.Sprintf("tick %d Hz from pclk %d Hz", tick, pclk))
	}
	return uint32(mathx.Log2(div)), nil
}

// Validate checks c against the current peripheral clock.
func (c Config) Validate(tree *clock.Tree) error {
	const op = "timer.Config"
	if c.Period == 0 {
		return errcode.New(errcode.InvalidDescriptor, op, "zero period")
	}
	_, err := prescale(op, tree.FrequencyOf(chip.PClk), c.Tick)
	return err
}

func (c PWMConfig) Validate(tree *clock.Tree) error {
	const op = "timer.PWMConfig"
	if c.Period == 0 {
		return errcode.New(errcode.InvalidDescriptor, op, "zero period")
	}
	if c.Duty > c.Period {
		return errcode.New(errcode.InvalidDescriptor, op, fmt.Sprintf("duty %d above period %d", c.Duty, c.Period))
	}
	_, err := prescale(op, tree.FrequencyOf(chip.PClk), c.Tick)
	return err
}

func (t timer) advance(op string, to mode.State) (timer, error) {
	if err := Graph.Check(t.h.Mode(), to); err != nil {
		return timer{}, errcode.Wrap(errcode.IllegalTransition, op, err)
	}
	h, err := t.h.Advance(to)
	if err != nil {
		return timer{}, err
	}
	logx.Debug(logx.ComponentTimer, "transition", "timer", t.ID().String(),
		"from", Graph.Name(t.h.Mode()), "to", Graph.Name(to))
	next := t
	next.h = h
	return next, nil
}

// stop halts the counter and its clock.
func (t timer) stop() {
	t.io.ClearBits(t.reg(chip.TMRCtrl0), 1<<chip.TMREnBit|1<<chip.TMRClkEnBit)
	t.io.ClearBits(t.reg(chip.TMRCtrl1), 1<<chip.TMRCtrl1ClkEnBit|1<<chip.TMRCtrl1OutEnBit)
}

// program writes a stopped timer. The counter restarts from 1, the first
// value the hardware counts from after a compare match.
func (t timer) program(op string, m, div, period, pwm uint32, activeLow bool) error {
	t.stop()
	ctrl := m<<chip.TMRModeShift | div<<chip.TMRClkDivShift
	if activeLow {
		ctrl |= 1 << chip.TMRPolBit
	}
	t.io.Write(t.reg(chip.TMRCtrl0), ctrl)
	t.io.Write(t.reg(chip.TMRCnt), 1)
	t.io.Write(t.reg(chip.TMRCmp), period)
	t.io.Write(t.reg(chip.TMRPwm), pwm)
	t.io.Write(t.reg(chip.TMRIntFl), chip.TMRIrqA)
	c1 := uint32(1 << chip.TMRCtrl1ClkEnBit)
	if m == chip.TMRModePWM {
		c1 |= 1 << chip.TMRCtrl1OutEnBit
	}
	t.io.Write(t.reg(chip.TMRCtrl1), c1)
	if !t.io.WaitSet(regs.Bit(t.reg(chip.TMRCtrl1), chip.TMRCtrl1ClkRdyBit)) {
		return errcode.New(errcode.NotReady, op, t.ID().String())
	}
	t.io.SetBits(t.reg(chip.TMRCtrl0), 1<<chip.TMRClkEnBit)
	return nil
}

func (t timer) toCounting(op string, to mode.State, hw uint32, c Config) (timer, error) {
	if err := c.Validate(t.tree); err != nil {
		return timer{}, err
	}
	pclk := t.tree.FrequencyOf(chip.PClk)
	div, _ := prescale(op, pclk, c.Tick)
	next, err := t.advance(op, to)
	if err != nil {
		return timer{}, err
	}
	next.tick = pclk >> div
	return next, next.program(op, hw, div, c.Period, 0, false)
}

func (t timer) toPWM(op string, c PWMConfig) (timer, error) {
	if err := c.Validate(t.tree); err != nil {
		return timer{}, err
	}
	pclk := t.tree.FrequencyOf(chip.PClk)
	div, _ := prescale(op, pclk, c.Tick)
	next, err := t.advance(op, ModePWM)
	if err != nil {
		return timer{}, err
	}
	next.tick = pclk >> div
	return next, next.program(op, chip.TMRModePWM, div, c.Period, c.Duty, c.ActiveLow)
}

func (t timer) toUnconfigured(op string) (timer, error) {
	gate := chip.GateOf(t.ID())
	wake := t.h.Mode() == ModeDisabled
	if wake {
		if err := t.h.Check(); err != nil {
			return timer{}, err
		}
		if err := t.tree.CanUngate(gate); err != nil {
			return timer{}, err
		}
	}
	next, err := t.advance(op, ModeUnconfigured)
	if err != nil {
		return timer{}, err
	}
	if wake {
		if err := next.tree.Ungate(gate); err != nil {
			return next, err
		}
	}
	next.stop()
	for _, off := range []uint32{chip.TMRCtrl0, chip.TMRCtrl1, chip.TMRCnt, chip.TMRCmp, chip.TMRPwm} {
		next.io.Write(next.reg(off), 0)
	}
	next.io.Write(next.reg(chip.TMRIntFl), chip.TMRIrqA)
	next.tick = 0
	return next, nil
}

func (t timer) toDisabled(op string) (timer, error) {
	next, err := t.advance(op, ModeDisabled)
	if err != nil {
		return timer{}, err
	}
	next.stop()
	next.tick = 0
	return next, next.tree.Gate(chip.GateOf(next.ID()))
}
