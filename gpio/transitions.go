package gpio

import (
	"maxhal/errcode"
)

// Mode types. Each wraps the same pin state; only the methods differ.
type (
	Unconfigured struct{ pin }
	Input        struct{ pin }
	Output       struct{ pin }
	Analog       struct{ pin }
	Alternate    struct{ pin }
	Disabled     struct{ pin }
)

func (p pin) toUnconfigured(op string) (pin, error) {
	next, err := p.advance(op, ModeUnconfigured)
	if err != nil {
		return pin{}, err
	}
	next.applyReset()
	return next, nil
}

func (p pin) toInput(op string, c InputConfig) (pin, error) {
	if err := c.Validate(); err != nil {
		return pin{}, err
	}
	next, err := p.advance(op, ModeInput)
	if err != nil {
		return pin{}, err
	}
	next.applyInput(c)
	return next, nil
}

func (p pin) toOutput(op string, c OutputConfig) (pin, error) {
	if err := c.Validate(); err != nil {
		return pin{}, err
	}
	next, err := p.advance(op, ModeOutput)
	if err != nil {
		return pin{}, err
	}
	next.applyOutput(c)
	return next, nil
}

func (p pin) toAnalog(op string) (pin, error) {
	if _, ok := p.table.Analog(p.ID()); !ok {
		return pin{}, errcode.New(errcode.UnsupportedMode, op, p.ID().String()+" has no analog channel")
	}
	next, err := p.advance(op, ModeAnalog)
	if err != nil {
		return pin{}, err
	}
	next.applyAnalog()
	return next, nil
}

func (p pin) toAlternate(op string, c AltConfig) (pin, error) {
	if err := c.Validate(p.table, p.ID()); err != nil {
		return pin{}, err
	}
	next, err := p.advance(op, ModeAlternate)
	if err != nil {
		return pin{}, err
	}
	next.applyAlternate(c)
	return next, nil
}

func (p pin) toDisabled(op string) (pin, error) {
	next, err := p.advance(op, ModeDisabled)
	if err != nil {
		return pin{}, err
	}
	next.applyDisabled()
	return next, nil
}

// From Unconfigured.

func (u Unconfigured) IntoInput(c InputConfig) (Input, error) {
	p, err := u.toInput("gpio.IntoInput", c)
	return Input{p}, err
}

func (u Unconfigured) IntoOutput(c OutputConfig) (Output, error) {
	p, err := u.toOutput("gpio.IntoOutput", c)
	return Output{p}, err
}

// IntoAnalog fails with UnsupportedMode on pins without an ADC channel.
func (u Unconfigured) IntoAnalog() (Analog, error) {
	p, err := u.toAnalog("gpio.IntoAnalog")
	return Analog{p}, err
}

func (u Unconfigured) IntoAlternate(c AltConfig) (Alternate, error) {
	p, err := u.toAlternate("gpio.IntoAlternate", c)
	return Alternate{p}, err
}

func (u Unconfigured) IntoDisabled() (Disabled, error) {
	p, err := u.toDisabled("gpio.IntoDisabled")
	return Disabled{p}, err
}

// From Input.

func (i Input) IntoUnconfigured() (Unconfigured, error) {
	p, err := i.toUnconfigured("gpio.IntoUnconfigured")
	return Unconfigured{p}, err
}

func (i Input) IntoOutput(c OutputConfig) (Output, error) {
	p, err := i.toOutput("gpio.IntoOutput", c)
	return Output{p}, err
}

func (i Input) IntoAlternate(c AltConfig) (Alternate, error) {
	p, err := i.toAlternate("gpio.IntoAlternate", c)
	return Alternate{p}, err
}

func (i Input) IntoDisabled() (Disabled, error) {
	p, err := i.toDisabled("gpio.IntoDisabled")
	return Disabled{p}, err
}

// From Output.

func (o Output) IntoUnconfigured() (Unconfigured, error) {
	p, err := o.toUnconfigured("gpio.IntoUnconfigured")
	return Unconfigured{p}, err
}

func (o Output) IntoInput(c InputConfig) (Input, error) {
	p, err := o.toInput("gpio.IntoInput", c)
	return Input{p}, err
}

func (o Output) IntoDisabled() (Disabled, error) {
	p, err := o.toDisabled("gpio.IntoDisabled")
	return Disabled{p}, err
}

// From Analog.

func (a Analog) IntoUnconfigured() (Unconfigured, error) {
	p, err := a.toUnconfigured("gpio.IntoUnconfigured")
	return Unconfigured{p}, err
}

func (a Analog) IntoDisabled() (Disabled, error) {
	p, err := a.toDisabled("gpio.IntoDisabled")
	return Disabled{p}, err
}

// From Alternate.

func (a Alternate) IntoUnconfigured() (Unconfigured, error) {
	p, err := a.toUnconfigured("gpio.IntoUnconfigured")
	return Unconfigured{p}, err
}

func (a Alternate) IntoDisabled() (Disabled, error) {
	p, err := a.toDisabled("gpio.IntoDisabled")
	return Disabled{p}, err
}

// From Disabled.

func (d Disabled) IntoUnconfigured() (Unconfigured, error) {
	p, err := d.toUnconfigured("gpio.IntoUnconfigured")
	return Unconfigured{p}, err
}
