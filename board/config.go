package board

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"maxhal/errcode"
	"maxhal/periph"

	"gopkg.in/yaml.v3"
)

// Config is a board bring-up plan. Identities only; nothing is claimed
// until the plan is applied.
type Config struct {
	Clocks ClockPlan  `yaml:"clocks"`
	Pins   []PinPlan  `yaml:"pins,omitempty"`
	UARTs  []UARTPlan `yaml:"uarts,omitempty"`
	I2C    []I2CPlan  `yaml:"i2c,omitempty"`
}

type ClockPlan struct {
	Oscillators []string     `yaml:"oscillators,omitempty"` // e.g. "ipo"
	Domains     []DomainPlan `yaml:"domains,omitempty"`
	Ungate      []string     `yaml:"ungate,omitempty"` // peripheral gates to start
}

type DomainPlan struct {
	Name   string `yaml:"name"`   // e.g. "sys_clk"
	Source string `yaml:"source"` // e.g. "ipo"
	Div    uint32 `yaml:"div"`
}

// PinPlan puts one pin in one mode. Fields that do not apply to the mode
// are ignored.
type PinPlan struct {
	Pin    string `yaml:"pin"`  // e.g. "P2.0"
	Mode   string `yaml:"mode"` // Input, Output, Analog, Alternate, Disabled
	Pull   string `yaml:"pull,omitempty"`
	Drive  uint8  `yaml:"drive,omitempty"`
	Supply string `yaml:"supply,omitempty"` // vddio or vddioh
	High   bool   `yaml:"high,omitempty"`   // initial output level
	AF     uint8  `yaml:"af,omitempty"`
	Signal string `yaml:"signal,omitempty"`
}

type UARTPlan struct {
	ID       string `yaml:"id"` // e.g. "UART0"
	RX       string `yaml:"rx"`
	TX       string `yaml:"tx"`
	Baud     uint32 `yaml:"baud"`
	Clock    string `yaml:"clock,omitempty"` // pclk (default) or ibro
	DataBits uint8  `yaml:"data_bits,omitempty"`
	StopBits uint8  `yaml:"stop_bits,omitempty"`
	Parity   string `yaml:"parity,omitempty"`
}

type I2CPlan struct {
	ID  string `yaml:"id"` // e.g. "I2C0"
	SCL string `yaml:"scl"`
	SDA string `yaml:"sda"`
	Hz  uint32 `yaml:"hz"`
}

// Parse decodes a plan, rejecting unknown keys.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, errcode.Wrap(errcode.InvalidDescriptor, "board.Parse", err)
	}
	return &c, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) { return yaml.Marshal(c) }

// Validate checks c against t: pins exist, no pin is planned twice,
// alternate functions carry the named signal and bus pins are routable.
// Mode names and clock names are checked when the plan is applied.
func (c *Config) Validate(t *Table) error {
	const op = "board.Validate"
	used := map[periph.ID]string{}
	claim := func(pin, who string) (periph.ID, error) {
		id, err := periph.ParseID(pin)
		if err != nil || id.Kind() != periph.KindPin || !t.Has(id) {
			return 0, errcode.New(errcode.UnknownResource, op, who+": pin "+pin)
		}
		if prev, dup := used[id]; dup {
			return 0, errcode.New(errcode.AlreadyClaimed, op,
				fmt.Sprintf("%s: %s already used by %s", who, pin, prev))
		}
		used[id] = who
		return id, nil
	}

	for _, p := range c.Pins {
		id, err := claim(p.Pin, "pins")
		if err != nil {
			return err
		}
		if !strings.EqualFold(p.Mode, "alternate") {
			continue
		}
		sig, ok := t.Signal(id, p.AF)
		if !ok {
			return errcode.New(errcode.InvalidDescriptor, op, fmt.Sprintf("%s has no AF%d", p.Pin, p.AF))
		}
		if p.Signal != "" && p.Signal != sig {
			return errcode.New(errcode.PinMismatch, op,
				fmt.Sprintf("%s AF%d is %s, not %s", p.Pin, p.AF, sig, p.Signal))
		}
	}
	for _, u := range c.UARTs {
		if u.Baud == 0 {
			return errcode.New(errcode.InvalidDescriptor, op, u.ID+": baud must be set")
		}
		if err := c.route(t, claim, u.ID, u.RX, "_RX"); err != nil {
			return err
		}
		if err := c.route(t, claim, u.ID, u.TX, "_TX"); err != nil {
			return err
		}
	}
	for _, b := range c.I2C {
		if b.Hz == 0 {
			return errcode.New(errcode.InvalidDescriptor, op, b.ID+": hz must be set")
		}
		if err := c.route(t, claim, b.ID, b.SCL, "_SCL"); err != nil {
			return err
		}
		if err := c.route(t, claim, b.ID, b.SDA, "_SDA"); err != nil {
			return err
		}
	}
	for _, d := range c.Clocks.Domains {
		if d.Div == 0 {
			return errcode.New(errcode.InvalidDivider, op, d.Name+": div must be set")
		}
	}
	return nil
}

func (c *Config) route(t *Table, claim func(pin, who string) (periph.ID, error), bus, pin, suffix string) error {
	id, err := claim(pin, bus)
	if err != nil {
		return err
	}
	_, err = t.Route(id, strings.ToUpper(bus)+suffix)
	return err
}
