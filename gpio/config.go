package gpio

import (
	"fmt"
	"strings"

	"maxhal/board"
	"maxhal/errcode"
	"maxhal/periph"
)

// Pull selects the input pad resistor.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
	PullUpWeak
	PullDownWeak
)

func (p Pull) String() string {
	switch p {
	case PullNone:
		return "none"
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	case PullUpWeak:
		return "up_weak"
	case PullDownWeak:
		return "down_weak"
	}
	return fmt.Sprintf("Pull(%d)", uint8(p))
}

// ParsePull accepts the String forms; the empty string is PullNone.
func ParsePull(s string) (Pull, error) {
	if s == "" {
		return PullNone, nil
	}
	for p := PullNone; p <= PullDownWeak; p++ {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, errcode.New(errcode.InvalidDescriptor, "gpio.ParsePull", s)
}

// Drive is the output drive strength, 0 (weakest) to 3.
type Drive uint8

const (
	DriveLow Drive = iota
	DriveMedium
	DriveHigh
	DriveMax
)

// Supply selects the I/O voltage rail of a pin.
type Supply uint8

const (
	SupplyVDDIO Supply = iota
	SupplyVDDIOH
)

func ParseSupply(s string) (Supply, error) {
	switch strings.ToLower(s) {
	case "", "vddio":
		return SupplyVDDIO, nil
	case "vddioh":
		return SupplyVDDIOH, nil
	}
	return 0, errcode.New(errcode.InvalidDescriptor, "gpio.ParseSupply", s)
}

type InputConfig struct {
	Pull   Pull
	Supply Supply
}

func (c InputConfig) Validate() error {
	if c.Pull > PullDownWeak {
		return errcode.New(errcode.InvalidDescriptor, "gpio.InputConfig", "pull "+c.Pull.String())
	}
	if c.Supply > SupplyVDDIOH {
		return errcode.New(errcode.InvalidDescriptor, "gpio.InputConfig", fmt.Sprintf("supply %d", c.Supply))
	}
	return nil
}

type OutputConfig struct {
	Drive   Drive
	Supply  Supply
	Initial bool // level driven as soon as the output is enabled
}

func (c OutputConfig) Validate() error {
	if c.Drive > DriveMax {
		return errcode.New(errcode.InvalidDescriptor, "gpio.OutputConfig", fmt.Sprintf("drive strength %d", c.Drive))
	}
	if c.Supply > SupplyVDDIOH {
		return errcode.New(errcode.InvalidDescriptor, "gpio.OutputConfig", fmt.Sprintf("supply %d", c.Supply))
	}
	return nil
}

// AltConfig hands a pin to a peripheral. Signal, when set, must match what
// the board table lists at AF; it guards against a wrong index.
type AltConfig struct {
	AF     uint8
	Signal string
	Pull   Pull
	Drive  Drive
	Supply Supply
}

// Validate checks c for pin against t.
func (c AltConfig) Validate(t *board.Table, pin periph.ID) error {
	const op = "gpio.AltConfig"
	if c.AF == 0 || c.AF > board.MaxAF {
		return errcode.New(errcode.InvalidDescriptor, op, fmt.Sprintf("AF%d", c.AF))
	}
	if err := (InputConfig{Pull: c.Pull, Supply: c.Supply}).Validate(); err != nil {
		return err
	}
	if err := (OutputConfig{Drive: c.Drive, Supply: c.Supply}).Validate(); err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	sig, ok := t.Signal(pin, c.AF)
	if !ok {
		return errcode.New(errcode.UnsupportedMode, op, fmt.Sprintf("%s has no AF%d", pin, c.AF))
	}
	if c.Signal != "" && c.Signal != sig {
		return errcode.New(errcode.PinMismatch, op, fmt.Sprintf("%s AF%d is %s, not %s", pin, c.AF, sig, c.Signal))
	}
	return nil
}
