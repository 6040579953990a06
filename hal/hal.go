// Package hal is the entry point of the HAL. Take hands out the chip's
// peripherals once per register bus; everything else is claimed from the
// returned Peripherals.
package hal

import (
	"log/slog"
	"reflect"
	"sync"

	"maxhal/board"
	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/flc"
	"maxhal/gpio"
	"maxhal/icc"
	"maxhal/internal/logx"
	"maxhal/periph"
	"maxhal/regs"
	"maxhal/timer"
	"maxhal/trng"
)

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

type options struct {
	cs     regs.CriticalSection
	table  *board.Table
	top    *clock.Topology
	logger *slog.Logger
}

type Option func(*options)

// WithCriticalSection sets the hook that read-modify-write sequences run
// inside, typically one that masks interrupts.
func WithCriticalSection(cs regs.CriticalSection) Option {
	return func(o *options) { o.cs = cs }
}

// WithTable replaces the built-in pin function table.
func WithTable(t *board.Table) Option {
	return func(o *options) { o.table = t }
}

// WithTopology replaces the built-in clock tree description.
func WithTopology(top clock.Topology) Option {
	return func(o *options) { o.top = &top }
}

// WithLogger routes HAL logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// -----------------------------------------------------------------------------
// Take
// -----------------------------------------------------------------------------

var (
	takenMu sync.Mutex
	taken   = map[regs.Bus]bool{}
)

// Peripherals is the initialization token: every resource of the chip,
// unclaimed. Each accessor succeeds once per resource.
type Peripherals struct {
	io    regs.IO
	tree  *clock.Tree
	tok   periph.Token
	table *board.Table

	mu   sync.Mutex
	pins map[periph.ID]gpio.Unconfigured
}

// Take returns the peripherals behind bus. A second call for the same bus
// fails with AlreadyTaken.
func Take(bus regs.Bus, opts ...Option) (*Peripherals, error) {
	const op = "hal.Take"
	if bus == nil || !reflect.TypeOf(bus).Comparable() {
		return nil, errcode.New(errcode.InvalidDescriptor, op, "bus must be a comparable, non-nil value")
	}
	o := options{table: board.DefaultTable()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger != nil {
		logx.SetLogger(o.logger)
	}
	top := chip.Topology()
	if o.top != nil {
		top = *o.top
	}

	takenMu.Lock()
	defer takenMu.Unlock()
	if taken[bus] {
		return nil, errcode.New(errcode.AlreadyTaken, op, "peripherals already taken")
	}
	io := regs.NewIO(bus, o.cs)
	tree, err := clock.NewTree(io, top)
	if err != nil {
		return nil, err
	}
	taken[bus] = true
	p := &Peripherals{
		io:    io,
		tree:  tree,
		tok:   periph.NewToken(periph.NewRegistry(chip.Resources()...)),
		table: o.table,
		pins:  map[periph.ID]gpio.Unconfigured{},
	}
	logx.Info(logx.ComponentHAL, "peripherals taken", "sys_clk", uint32(tree.FrequencyOf(chip.SysClk)))
	return p, nil
}

func (p *Peripherals) IO() regs.IO                { return p.io }
func (p *Peripherals) Tree() *clock.Tree          { return p.tree }
func (p *Peripherals) Table() *board.Table        { return p.table }
func (p *Peripherals) Registry() *periph.Registry { return p.tok.Registry() }
func (p *Peripherals) Token() periph.Token        { return p.tok }

// Rest lists the resources nobody has taken yet.
func (p *Peripherals) Rest() []periph.ID { return p.tok.Rest() }

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// Port takes GPIO port n and starts its clock.
func (p *Peripherals) Port(n uint8) (*gpio.Port, error) {
	id := periph.Unit(periph.KindPort, n)
	gate := chip.GateOf(id)
	if n < chip.NumPorts {
		if err := p.tree.CanUngate(gate); err != nil {
			return nil, err
		}
	}
	h, err := p.tok.Take(id)
	if err != nil {
		return nil, err
	}
	port, err := gpio.NewPort(h, p.Registry(), p.io, p.table)
	if err != nil {
		return nil, err
	}
	return port, p.tree.Ungate(gate)
}

// Pin takes a single pin, splitting its port on first use. Pins of a port
// taken through Port are not available here.
func (p *Peripherals) Pin(id periph.ID) (gpio.Unconfigured, error) {
	const op = "hal.Pin"
	if id.Kind() != periph.KindPin {
		return gpio.Unconfigured{}, errcode.New(errcode.UnknownResource, op, id.String())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.pins[id]; ok {
		delete(p.pins, id)
		return u, nil
	}
	portID := periph.Unit(periph.KindPort, id.Unit())
	if _, claimed := p.Registry().Mode(portID); claimed {
		return gpio.Unconfigured{}, errcode.New(errcode.AlreadyClaimed, op, id.String())
	}
	port, err := p.Port(id.Unit())
	if err != nil {
		return gpio.Unconfigured{}, err
	}
	pins, err := port.Split()
	if err != nil {
		return gpio.Unconfigured{}, err
	}
	var out gpio.Unconfigured
	found := false
	for _, u := range pins {
		if u.ID() == id {
			out, found = u, true
			continue
		}
		p.pins[u.ID()] = u
	}
	if !found {
		return gpio.Unconfigured{}, errcode.New(errcode.UnknownResource, op, id.String())
	}
	return out, nil
}

// Timer takes timer n in Unconfigured mode.
func (p *Peripherals) Timer(n uint8) (timer.Unconfigured, error) {
	h, err := p.tok.Take(periph.Unit(periph.KindTimer, n))
	if err != nil {
		return timer.Unconfigured{}, err
	}
	return timer.New(h, p.io, p.tree)
}

// UART takes the instance handle of UART n, for uart.Configure.
func (p *Peripherals) UART(n uint8) (periph.Handle, error) {
	return p.tok.Take(periph.Unit(periph.KindUART, n))
}

// I2C takes the instance handle of bus n, for i2c.New.
func (p *Peripherals) I2C(n uint8) (periph.Handle, error) {
	return p.tok.Take(periph.Unit(periph.KindI2C, n))
}

func (p *Peripherals) TRNG() (*trng.TRNG, error) {
	h, err := p.tok.Take(periph.Unit(periph.KindTRNG, 0))
	if err != nil {
		return nil, err
	}
	return trng.New(h, p.io, p.tree)
}

func (p *Peripherals) FLC() (*flc.FLC, error) {
	h, err := p.tok.Take(periph.Unit(periph.KindFLC, 0))
	if err != nil {
		return nil, err
	}
	return flc.New(h, p.io, p.tree)
}

func (p *Peripherals) ICC() (*icc.ICC, error) {
	h, err := p.tok.Take(periph.Unit(periph.KindICC, 0))
	if err != nil {
		return nil, err
	}
	return icc.New(h, p.io)
}

// Oscillator takes the handle of one clock source.
func (p *Peripherals) Oscillator(src clock.Source) (*Osc, error) {
	id, ok := chip.OscillatorID(src)
	if !ok {
		return nil, errcode.New(errcode.UnroutableSource, "hal.Oscillator", string(src))
	}
	h, err := p.tok.Take(id)
	if err != nil {
		return nil, err
	}
	return &Osc{h: h, src: src, tree: p.tree}, nil
}
