package gpio

import (
	"maxhal/chip"
	"maxhal/errcode"
)

// SetHigh drives the pin high.
func (o Output) SetHigh() error { return o.Set(true) }

// SetLow drives the pin low.
func (o Output) SetLow() error { return o.Set(false) }

func (o Output) Set(high bool) error {
	if err := o.Check(); err != nil {
		return err
	}
	if high {
		o.set(chip.GPIOOut)
	} else {
		o.clr(chip.GPIOOut)
	}
	return nil
}

func (o Output) Toggle() error {
	if err := o.Check(); err != nil {
		return err
	}
	if o.bit(chip.GPIOOut) {
		o.clr(chip.GPIOOut)
	} else {
		o.set(chip.GPIOOut)
	}
	return nil
}

// IsSetHigh reports the level the pin is being driven to.
func (o Output) IsSetHigh() (bool, error) {
	if err := o.Check(); err != nil {
		return false, err
	}
	return o.bit(chip.GPIOOut), nil
}

// Get reads the level seen at the pad, which can differ from the driven
// level when the line is overloaded.
func (o Output) Get() (bool, error) {
	if err := o.Check(); err != nil {
		return false, err
	}
	return o.bit(chip.GPIOIn), nil
}

func (o Output) Drive() (Drive, error) {
	if err := o.Check(); err != nil {
		return 0, err
	}
	var d Drive
	if o.bit(chip.GPIODS0) {
		d |= 1
	}
	if o.bit(chip.GPIODS1) {
		d |= 2
	}
	return d, nil
}

func (o Output) SetDrive(d Drive) error {
	if err := (OutputConfig{Drive: d}).Validate(); err != nil {
		return err
	}
	if err := o.Check(); err != nil {
		return err
	}
	o.writeDrive(d)
	return nil
}

func (o Output) SetSupply(s Supply) error {
	if err := (OutputConfig{Supply: s}).Validate(); err != nil {
		return err
	}
	if err := o.Check(); err != nil {
		return err
	}
	o.writeSupply(s)
	return nil
}

func (i Input) Get() (bool, error) {
	if err := i.Check(); err != nil {
		return false, err
	}
	return i.bit(chip.GPIOIn), nil
}

func (i Input) IsHigh() (bool, error) { return i.Get() }

func (i Input) IsLow() (bool, error) {
	v, err := i.Get()
	return !v, err
}

func (i Input) Pull() (Pull, error) {
	if err := i.Check(); err != nil {
		return 0, err
	}
	up, down, weak := i.bit(chip.GPIOPadCtrl0), i.bit(chip.GPIOPadCtrl1), i.bit(chip.GPIOPS)
	switch {
	case up && weak:
		return PullUpWeak, nil
	case up:
		return PullUp, nil
	case down && weak:
		return PullDownWeak, nil
	case down:
		return PullDown, nil
	}
	return PullNone, nil
}

func (i Input) SetPull(p Pull) error {
	if err := (InputConfig{Pull: p}).Validate(); err != nil {
		return err
	}
	if err := i.Check(); err != nil {
		return err
	}
	i.writePull(p)
	return nil
}

// AF reports the alternate function selected in hardware, 1 to 4.
func (a Alternate) AF() (uint8, error) {
	if err := a.Check(); err != nil {
		return 0, err
	}
	af := uint8(1)
	if a.bit(chip.GPIOEn1) {
		af++
	}
	if a.bit(chip.GPIOEn2) {
		af += 2
	}
	return af, nil
}

// Signal is the board table name of the routed function, e.g. UART0_TX.
func (a Alternate) Signal() (string, error) {
	af, err := a.AF()
	if err != nil {
		return "", err
	}
	sig, ok := a.table.Signal(a.ID(), af)
	if !ok {
		return "", errcode.New(errcode.UnsupportedMode, "gpio.Signal", a.ID().String())
	}
	return sig, nil
}

// Take consumes a and returns the pin again, still routed, with no register
// write. A bus driver keeps the result; every earlier copy goes stale.
func (a Alternate) Take() (Alternate, error) {
	h, err := a.h.Advance(ModeAlternate)
	if err != nil {
		return Alternate{}, err
	}
	next := a
	next.h = h
	return next, nil
}

// Channel is the ADC input the pin feeds, e.g. AIN3.
func (a Analog) Channel() (string, error) {
	if err := a.Check(); err != nil {
		return "", err
	}
	ch, _ := a.table.Analog(a.ID())
	return ch, nil
}
