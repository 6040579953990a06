package timer

import (
	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
)

type (
	Unconfigured struct{ timer }
	OneShot      struct{ running }
	Continuous   struct{ running }
	PWM          struct{ running }
	Disabled     struct{ timer }
)

// running carries the operations shared by the counting modes.
type running struct{ timer }

// Tick is the counter rate captured when the mode was entered. Later
// clock changes do not update it.
func (r running) Tick() clock.Hz { return r.tick }

// Start enables the counter.
func (r running) Start() error {
	if err := r.Check(); err != nil {
		return err
	}
	r.io.SetBits(r.reg(chip.TMRCtrl0), 1<<chip.TMREnBit)
	return nil
}

// Stop halts the counter without resetting it.
func (r running) Stop() error {
	if err := r.Check(); err != nil {
		return err
	}
	r.io.ClearBits(r.reg(chip.TMRCtrl0), 1<<chip.TMREnBit)
	return nil
}

func (r running) Count() (uint32, error) {
	if err := r.Check(); err != nil {
		return 0, err
	}
	return r.io.Read(r.reg(chip.TMRCnt)), nil
}

// Expired reports whether the compare value has been reached since the
// last Ack.
func (r running) Expired() (bool, error) {
	if err := r.Check(); err != nil {
		return false, err
	}
	return r.io.Read(r.reg(chip.TMRIntFl))&chip.TMRIrqA != 0, nil
}

func (r running) Ack() error {
	if err := r.Check(); err != nil {
		return err
	}
	r.io.Write(r.reg(chip.TMRIntFl), chip.TMRIrqA)
	return nil
}

// SetDuty changes the active time, in ticks. It must not exceed the period.
func (p PWM) SetDuty(duty uint32) error {
	const op = "timer.SetDuty"
	if err := p.Check(); err != nil {
		return err
	}
	if period := p.io.Read(p.reg(chip.TMRCmp)); duty > period {
		return errcode.New(errcode.InvalidDescriptor, op, "duty above period")
	}
	p.io.Write(p.reg(chip.TMRPwm), duty)
	return nil
}

func (p PWM) Duty() (uint32, error) {
	if err := p.Check(); err != nil {
		return 0, err
	}
	return p.io.Read(p.reg(chip.TMRPwm)), nil
}

// Transitions. The counting modes return the new handle together with
// NotReady if the timer clock did not come up; the mode change has then
// already happened.

func (u Unconfigured) IntoOneShot(c Config) (OneShot, error) {
	t, err := u.toCounting("timer.IntoOneShot", ModeOneShot, chip.TMRModeOneShot, c)
	return OneShot{running{t}}, err
}

func (u Unconfigured) IntoContinuous(c Config) (Continuous, error) {
	t, err := u.toCounting("timer.IntoContinuous", ModeContinuous, chip.TMRModeContinuous, c)
	return Continuous{running{t}}, err
}

func (u Unconfigured) IntoPWM(c PWMConfig) (PWM, error) {
	t, err := u.toPWM("timer.IntoPWM", c)
	return PWM{running{t}}, err
}

func (u Unconfigured) IntoDisabled() (Disabled, error) {
	t, err := u.toDisabled("timer.IntoDisabled")
	return Disabled{t}, err
}

func (o OneShot) IntoUnconfigured() (Unconfigured, error) {
	t, err := o.toUnconfigured("timer.IntoUnconfigured")
	return Unconfigured{t}, err
}

func (o OneShot) IntoContinuous(c Config) (Continuous, error) {
	t, err := o.toCounting("timer.IntoContinuous", ModeContinuous, chip.TMRModeContinuous, c)
	return Continuous{running{t}}, err
}

func (o OneShot) IntoDisabled() (Disabled, error) {
	t, err := o.toDisabled("timer.IntoDisabled")
	return Disabled{t}, err
}

func (c Continuous) IntoUnconfigured() (Unconfigured, error) {
	t, err := c.toUnconfigured("timer.IntoUnconfigured")
	return Unconfigured{t}, err
}

func (c Continuous) IntoOneShot(cfg Config) (OneShot, error) {
	t, err := c.toCounting("timer.IntoOneShot", ModeOneShot, chip.TMRModeOneShot, cfg)
	return OneShot{running{t}}, err
}

func (c Continuous) IntoDisabled() (Disabled, error) {
	t, err := c.toDisabled("timer.IntoDisabled")
	return Disabled{t}, err
}

func (p PWM) IntoUnconfigured() (Unconfigured, error) {
	t, err := p.toUnconfigured("timer.IntoUnconfigured")
	return Unconfigured{t}, err
}

func (p PWM) IntoDisabled() (Disabled, error) {
	t, err := p.toDisabled("timer.IntoDisabled")
	return Disabled{t}, err
}

func (d Disabled) IntoUnconfigured() (Unconfigured, error) {
	t, err := d.toUnconfigured("timer.IntoUnconfigured")
	return Unconfigured{t}, err
}
