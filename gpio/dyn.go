package gpio

import (
	"fmt"

	"maxhal/errcode"
	"maxhal/mode"
	"maxhal/periph"
)

// Dyn is a pin whose mode is only known at run time. Into checks the same
// graph the typed methods are generated from.
type Dyn struct{ p pin }

func (d Dyn) ID() periph.ID { return d.p.ID() }

func (d Dyn) Mode() mode.State { return d.p.h.Mode() }

func (d Dyn) Check() error { return d.p.Check() }

func (d Dyn) String() string { return d.p.String() }

// Into moves the pin to mode to. desc must be the matching descriptor
// (InputConfig, OutputConfig or AltConfig) or nil for the other modes.
func (d Dyn) Into(to mode.State, desc any) (Dyn, error) {
	const op = "gpio.Into"
	if err := Graph.Check(d.Mode(), to); err != nil {
		return Dyn{}, errcode.Wrap(errcode.IllegalTransition, op, err)
	}
	bad := func() (Dyn, error) {
		return Dyn{}, errcode.New(errcode.InvalidDescriptor, op,
			fmt.Sprintf("%T for %s", desc, Graph.Name(to)))
	}
	var (
		next pin
		err  error
	)
	switch to {
	case ModeInput:
		c, ok := desc.(InputConfig)
		if !ok {
			return bad()
		}
		next, err = d.p.toInput(op, c)
	case ModeOutput:
		c, ok := desc.(OutputConfig)
		if !ok {
			return bad()
		}
		next, err = d.p.toOutput(op, c)
	case ModeAlternate:
		c, ok := desc.(AltConfig)
		if !ok {
			return bad()
		}
		next, err = d.p.toAlternate(op, c)
	case ModeAnalog, ModeDisabled, ModeUnconfigured:
		if desc != nil {
			return bad()
		}
		switch to {
		case ModeAnalog:
			next, err = d.p.toAnalog(op)
		case ModeDisabled:
			next, err = d.p.toDisabled(op)
		default:
			next, err = d.p.toUnconfigured(op)
		}
	}
	if err != nil {
		return Dyn{}, err
	}
	return Dyn{next}, nil
}

func (d Dyn) as(m mode.State) (pin, error) {
	if err := d.p.Check(); err != nil {
		return pin{}, err
	}
	if d.Mode() != m {
		return pin{}, errcode.New(errcode.UnsupportedMode, "gpio.Dyn",
			fmt.Sprintf("%s is not %s", d.p, Graph.Name(m)))
	}
	return d.p, nil
}

// The As methods recover the typed handle. They do not consume d.

func (d Dyn) AsUnconfigured() (Unconfigured, error) {
	p, err := d.as(ModeUnconfigured)
	return Unconfigured{p}, err
}

func (d Dyn) AsInput() (Input, error) {
	p, err := d.as(ModeInput)
	return Input{p}, err
}

func (d Dyn) AsOutput() (Output, error) {
	p, err := d.as(ModeOutput)
	return Output{p}, err
}

func (d Dyn) AsAnalog() (Analog, error) {
	p, err := d.as(ModeAnalog)
	return Analog{p}, err
}

func (d Dyn) AsAlternate() (Alternate, error) {
	p, err := d.as(ModeAlternate)
	return Alternate{p}, err
}

func (d Dyn) AsDisabled() (Disabled, error) {
	p, err := d.as(ModeDisabled)
	return Disabled{p}, err
}
