package hal

import (
	"strconv"
	"strings"

	"maxhal/board"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/gpio"
	"maxhal/i2c"
	"maxhal/internal/logx"
	"maxhal/mode"
	"maxhal/periph"
	"maxhal/uart"
)

// Board is what Apply brought up, keyed by the names used in the plan.
type Board struct {
	Oscillators map[clock.Source]*Osc
	Pins        map[periph.ID]gpio.Dyn
	UARTs       map[string]*uart.UART
	I2C         map[string]*i2c.Controller
}

func fail(op, what string, err error) error {
	return &errcode.E{C: errcode.Of(err), Op: op, Msg: what + ": " + err.Error(), Err: err}
}

// Apply brings a board plan up: oscillators, clock domains and gates
// first, then the pin plan through the dynamic path, then UARTs and I2C
// buses. The plan is validated against the pin table before anything is
// claimed. A failure part way leaves the earlier steps applied.
func (p *Peripherals) Apply(cfg *board.Config) (*Board, error) {
	const op = "hal.Apply"
	if err := cfg.Validate(p.table); err != nil {
		return nil, err
	}
	b := &Board{
		Oscillators: map[clock.Source]*Osc{},
		Pins:        map[periph.ID]gpio.Dyn{},
		UARTs:       map[string]*uart.UART{},
		I2C:         map[string]*i2c.Controller{},
	}

	for _, name := range cfg.Clocks.Oscillators {
		src := clock.Source(strings.ToLower(name))
		o, err := p.Oscillator(src)
		if err != nil {
			return nil, fail(op, "oscillator "+name, err)
		}
		if err := o.Enable(); err != nil {
			return nil, fail(op, "oscillator "+name, err)
		}
		b.Oscillators[src] = o
	}
	for _, d := range cfg.Clocks.Domains {
		hz, err := p.tree.Configure(clock.Domain(strings.ToLower(d.Name)), clock.Source(strings.ToLower(d.Source)), d.Div)
		if err != nil {
			return nil, fail(op, "domain "+d.Name, err)
		}
		logx.Debug(logx.ComponentHAL, "domain applied", "domain", d.Name, "hz", uint32(hz))
	}
	for _, g := range cfg.Clocks.Ungate {
		if err := p.tree.Ungate(strings.ToLower(g)); err != nil {
			return nil, fail(op, "gate "+g, err)
		}
	}

	for _, pp := range cfg.Pins {
		d, err := p.applyPin(pp)
		if err != nil {
			return nil, fail(op, "pin "+pp.Pin, err)
		}
		b.Pins[d.ID()] = d
	}
	for _, up := range cfg.UARTs {
		u, err := p.applyUART(up)
		if err != nil {
			return nil, fail(op, up.ID, err)
		}
		b.UARTs[up.ID] = u
	}
	for _, ip := range cfg.I2C {
		c, err := p.applyI2C(ip)
		if err != nil {
			return nil, fail(op, ip.ID, err)
		}
		b.I2C[ip.ID] = c
	}
	logx.Info(logx.ComponentHAL, "board applied", "pins", len(b.Pins), "uarts", len(b.UARTs), "i2c", len(b.I2C))
	return b, nil
}

// lookupState is Graph.Parse without regard to case, for hand-written plans.
func lookupState(g *mode.Graph, name string) (mode.State, bool) {
	for _, s := range g.States() {
		if strings.EqualFold(g.Name(s), name) {
			return s, true
		}
	}
	return 0, false
}

func (p *Peripherals) applyPin(pp board.PinPlan) (gpio.Dyn, error) {
	to, ok := lookupState(gpio.Graph, pp.Mode)
	if !ok {
		return gpio.Dyn{}, errcode.New(errcode.UnsupportedMode, "hal.applyPin", pp.Mode)
	}
	var desc any
	switch to {
	case gpio.ModeInput, gpio.ModeOutput, gpio.ModeAlternate:
		pull, err := gpio.ParsePull(pp.Pull)
		if err != nil {
			return gpio.Dyn{}, err
		}
		supply, err := gpio.ParseSupply(pp.Supply)
		if err != nil {
			return gpio.Dyn{}, err
		}
		switch to {
		case gpio.ModeInput:
			desc = gpio.InputConfig{Pull: pull, Supply: supply}
		case gpio.ModeOutput:
			desc = gpio.OutputConfig{Drive: gpio.Drive(pp.Drive), Supply: supply, Initial: pp.High}
		default:
			desc = gpio.AltConfig{AF: pp.AF, Signal: pp.Signal, Pull: pull, Drive: gpio.Drive(pp.Drive), Supply: supply}
		}
	}
	id, err := periph.ParseID(pp.Pin)
	if err != nil {
		return gpio.Dyn{}, err
	}
	u, err := p.Pin(id)
	if err != nil {
		return gpio.Dyn{}, err
	}
	if to == gpio.ModeUnconfigured {
		return u.Dyn(), nil
	}
	return u.Dyn().Into(to, desc)
}

// route takes pin and puts it on signal.
func (p *Peripherals) route(pin, signal string) (gpio.Alternate, error) {
	id, err := periph.ParseID(pin)
	if err != nil {
		return gpio.Alternate{}, err
	}
	af, err := p.table.Route(id, signal)
	if err != nil {
		return gpio.Alternate{}, err
	}
	u, err := p.Pin(id)
	if err != nil {
		return gpio.Alternate{}, err
	}
	return u.IntoAlternate(gpio.AltConfig{AF: af, Signal: signal})
}

// unitOf parses "UART2" or "I2C1". LPUART0 is UART3.
func unitOf(id string, k periph.Kind) (uint8, error) {
	s := strings.ToUpper(id)
	if k == periph.KindUART && s == uart.Prefix(3) {
		return 3, nil
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(s, k.String()), 10, 8)
	if err != nil || !strings.HasPrefix(s, k.String()) {
		return 0, errcode.New(errcode.UnknownResource, "hal.unitOf", id)
	}
	return uint8(n), nil
}

func (p *Peripherals) applyUART(up board.UARTPlan) (*uart.UART, error) {
	n, err := unitOf(up.ID, periph.KindUART)
	if err != nil {
		return nil, err
	}
	inst, err := p.UART(n)
	if err != nil {
		return nil, err
	}
	rx, err := p.route(up.RX, uart.Prefix(n)+"_RX")
	if err != nil {
		return nil, err
	}
	tx, err := p.route(up.TX, uart.Prefix(n)+"_TX")
	if err != nil {
		return nil, err
	}
	cfg, err := uart.Configure(inst, p.io, rx, tx)
	if err != nil {
		return nil, err
	}
	cfg = cfg.Baud(up.Baud)
	if up.DataBits != 0 {
		cfg = cfg.DataBits(uart.DataBits(up.DataBits))
	}
	switch up.StopBits {
	case 0, 1:
	case 2:
		cfg = cfg.StopBits(uart.StopMore)
	default:
		return nil, errcode.New(errcode.InvalidDescriptor, "hal.applyUART", "stop bits "+strconv.Itoa(int(up.StopBits)))
	}
	if up.Parity != "" {
		par, err := uart.ParseParity(up.Parity)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Parity(par)
	}
	switch strings.ToLower(up.Clock) {
	case "", "pclk":
		return cfg.ClockPCLK().Build(p.tree)
	case "ibro":
		return cfg.ClockIBRO().Build(p.tree)
	}
	return nil, errcode.New(errcode.UnroutableSource, "hal.applyUART", up.Clock)
}

func (p *Peripherals) applyI2C(ip board.I2CPlan) (*i2c.Controller, error) {
	n, err := unitOf(ip.ID, periph.KindI2C)
	if err != nil {
		return nil, err
	}
	inst, err := p.I2C(n)
	if err != nil {
		return nil, err
	}
	prefix := "I2C" + strconv.Itoa(int(n))
	scl, err := p.route(ip.SCL, prefix+"_SCL")
	if err != nil {
		return nil, err
	}
	sda, err := p.route(ip.SDA, prefix+"_SDA")
	if err != nil {
		return nil, err
	}
	return i2c.New(inst, p.io, p.tree, scl, sda, i2c.Config{Hz: clock.Hz(ip.Hz)})
}
