package gpio

import (
	"maxhal/board"
	"maxhal/chip"
	"maxhal/errcode"
	"maxhal/periph"
	"maxhal/regs"
)

// Port is one GPIO block. Split hands out its pins.
type Port struct {
	h     periph.Handle
	reg   *periph.Registry
	io    regs.IO
	table *board.Table
}

// portSplit is the mode of a port handle once its pins are out.
const portSplit = 1

// NewPort wraps a claimed PORTn handle. Pins are claimed from reg.
func NewPort(h periph.Handle, reg *periph.Registry, io regs.IO, table *board.Table) (*Port, error) {
	if err := h.Check(); err != nil {
		return nil, err
	}
	id := h.ID()
	if id.Kind() != periph.KindPort || id.Unit() >= chip.NumPorts {
		return nil, errcode.New(errcode.UnknownResource, "gpio.NewPort", id.String())
	}
	if table == nil {
		table = board.DefaultTable()
	}
	return &Port{h: h, reg: reg, io: io, table: table}, nil
}

func (p *Port) Number() uint8 { return p.h.ID().Unit() }

// Split returns every pin of the port, indexed by pin number, in
// Unconfigured mode. It succeeds once. On failure the port stays unsplit
// and no pin is claimed.
func (p *Port) Split() ([]Unconfigured, error) {
	const op = "gpio.Split"
	if p.h.Mode() == portSplit {
		return nil, errcode.New(errcode.AlreadyTaken, op, p.h.String())
	}
	h, err := p.h.Advance(portSplit)
	if err != nil {
		return nil, err
	}
	n := p.Number()
	ids := make([]periph.ID, chip.PinsPerPort[n])
	for i := range ids {
		ids[i] = periph.Pin(n, uint8(i))
	}
	hs, err := p.reg.ClaimAll(ids...)
	if err != nil {
		if back, rerr := h.Advance(0); rerr == nil {
			p.h = back
		}
		return nil, errcode.Wrap(errcode.Of(err), op, err)
	}
	p.h = h
	pins := make([]Unconfigured, len(hs))
	for i, ph := range hs {
		pins[i] = Unconfigured{pin{h: ph, port: n, n: uint8(i), io: p.io, table: p.table}}
	}
	return pins, nil
}
