// Package uart drives the MAX7800x UARTs. A port is built in three steps:
// Configure binds the instance to its pins, a Clock method picks the baud
// clock, and Build programs the hardware once, from the clock frequency at
// that moment.
package uart

import (
	"fmt"
	"strconv"

	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/gpio"
	"maxhal/internal/logx"
	"maxhal/periph"
	"maxhal/regs"
	"maxhal/x/mathx"
)

type DataBits uint8

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

type StopBits uint8

const (
	StopOne  StopBits = iota
	StopMore          // 1.5 bits with 5 data bits, 2 otherwise
)

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
	ParitySpace
	ParityMark
)

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	case ParitySpace:
		return "space"
	case ParityMark:
		return "mark"
	default:
		return "none"
	}
}

func ParseParity(s string) (Parity, error) {
	for p := ParityNone; p <= ParityMark; p++ {
		if s == p.String() {
			return p, nil
		}
	}
	if s == "" {
		return ParityNone, nil
	}
	return 0, errcode.New(errcode.InvalidDescriptor, "uart.ParseParity", s)
}

// ClockSource is the baud clock of a UART.
type ClockSource uint8

const (
	ClockPCLK ClockSource = iota
	ClockIBRO
)

func (c ClockSource) String() string {
	if c == ClockIBRO {
		return "ibro"
	}
	return "pclk"
}

const DefaultBaud = 115200

// modeBuilt is the instance handle mode of a programmed UART.
const modeBuilt = 1

type builder struct {
	inst   periph.Handle
	n      uint8
	io     regs.IO
	rx, tx gpio.Alternate
	baud   uint32
	data   DataBits
	stop   StopBits
	parity Parity
}

// Unclocked is a UART bound to its pins, with no baud clock chosen yet.
type Unclocked struct{ b builder }

// Clocked is ready to Build.
type Clocked struct {
	b   builder
	src ClockSource
}

// Prefix returns the signal name prefix of UART n in the pin table.
func Prefix(n uint8) string {
	if n == 3 {
		return "LPUART0"
	}
	return "UART" + strconv.Itoa(int(n))
}

// Configure binds instance inst to rx and tx, which must be routed to its
// receive and transmit signals. The defaults are 115200 baud 8N1.
func Configure(inst periph.Handle, io regs.IO, rx, tx gpio.Alternate) (Unclocked, error) {
	const op = "uart.Configure"
	if err := inst.Check(); err != nil {
		return Unclocked{}, err
	}
	id := inst.ID()
	if id.Kind() != periph.KindUART || id.Unit() >= chip.NumUARTs {
		return Unclocked{}, errcode.New(errcode.UnknownResource, op, id.String())
	}
	if inst.Mode() != 0 {
		return Unclocked{}, errcode.New(errcode.AlreadyTaken, op, id.String())
	}
	n := id.Unit()
	for _, want := range []struct {
		p   gpio.Alternate
		sig string
	}{{rx, Prefix(n) + "_RX"}, {tx, Prefix(n) + "_TX"}} {
		sig, err := want.p.Signal()
		if err != nil {
			return Unclocked{}, err
		}
		if sig != want.sig {
			return Unclocked{}, errcode.New(errcode.PinMismatch, op,
				fmt.Sprintf("%s carries %s, need %s", want.p.ID(), sig, want.sig))
		}
	}
	return Unclocked{builder{
		inst: inst, n: n, io: io, rx: rx, tx: tx,
		baud: DefaultBaud, data: DataBits8, stop: StopOne, parity: ParityNone,
	}}, nil
}

func (u Unclocked) ClockPCLK() Clocked { return Clocked{b: u.b, src: ClockPCLK} }

func (u Unclocked) ClockIBRO() Clocked { return Clocked{b: u.b, src: ClockIBRO} }

func (u Unclocked) Baud(baud uint32) Unclocked    { u.b.baud = baud; return u }
func (u Unclocked) DataBits(d DataBits) Unclocked { u.b.data = d; return u }
func (u Unclocked) StopBits(s StopBits) Unclocked { u.b.stop = s; return u }
func (u Unclocked) Parity(p Parity) Unclocked     { u.b.parity = p; return u }

func (c Clocked) Baud(baud uint32) Clocked    { c.b.baud = baud; return c }
func (c Clocked) DataBits(d DataBits) Clocked { c.b.data = d; return c }
func (c Clocked) StopBits(s StopBits) Clocked { c.b.stop = s; return c }
func (c Clocked) Parity(p Parity) Clocked     { c.b.parity = p; return c }

func (b builder) validate() error {
	const op = "uart.Build"
	switch {
	case b.baud == 0:
		return errcode.New(errcode.InvalidDescriptor, op, "zero baud")
	case !mathx.Between(b.data, DataBits5, DataBits8):
		return errcode.New(errcode.InvalidDescriptor, op, fmt.Sprintf("%d data bits", b.data))
	case b.stop > StopMore:
		return errcode.New(errcode.InvalidDescriptor, op, fmt.Sprintf("stop bits %d", b.stop))
	case b.parity > ParityMark:
		return errcode.New(errcode.InvalidDescriptor, op, fmt.Sprintf("parity %d", b.parity))
	}
	return nil
}

func (b builder) ctrl(src ClockSource) uint32 {
	v := uint32(chip.UARTBclkEn | chip.UARTTxFlush | chip.UARTRxFlush)
	if src == ClockIBRO {
		v |= chip.UARTBclkIBRO << chip.UARTBclkShift
	} else {
		v |= chip.UARTBclkPCLK << chip.UARTBclkShift
	}
	v |= uint32(b.data-DataBits5) << chip.UARTCharShift
	if b.stop == StopMore {
		v |= chip.UARTStop2
	}
	switch b.parity {
	case ParityEven, ParitySpace:
		v |= chip.UARTParEn
	case ParityOdd:
		v |= chip.UARTParEn | chip.UARTParOdd
	case ParityMark:
		v |= chip.UARTParEn | chip.UARTParMark
	}
	return v
}

// Build programs the UART. The divisor is computed from the clock
// frequency now; reconfiguring the clock later does not retune it.
func (c Clocked) Build(tree *clock.Tree) (*UART, error) {
	const op = "uart.Build"
	b := c.b
	if err := b.validate(); err != nil {
		return nil, err
	}
	var f clock.Hz
	switch c.src {
	case ClockIBRO:
		if !tree.OscillatorEnabled(chip.IBRO) {
			return nil, errcode.New(errcode.SourceDisabled, op, string(chip.IBRO))
		}
		f = tree.OscillatorHz(chip.IBRO)
	default:
		if !tree.Enabled(chip.PClk) {
			return nil, errcode.New(errcode.SourceDisabled, op, string(chip.PClk))
		}
		f = tree.FrequencyOf(chip.PClk)
	}
	div := uint32(f) / b.baud
	if div == 0 || div > chip.UARTClkDivMask {
		return nil, errcode.New(errcode.InvalidDivider, op,
			fmt.Sprintf("%d baud from %d Hz", b.baud, f))
	}
	gate := chip.GateOf(b.inst.ID())
	for _, err := range []error{b.inst.Check(), b.rx.Check(), b.tx.Check(), tree.CanUngate(gate)} {
		if err != nil {
			return nil, err
		}
	}

	// Only a racing copy can make these fail after the checks above.
	rx, err := b.rx.Take()
	if err != nil {
		return nil, err
	}
	tx, err := b.tx.Take()
	if err != nil {
		return nil, err
	}
	h, err := b.inst.Advance(modeBuilt)
	if err != nil {
		return nil, err
	}
	u := &UART{h: h, n: b.n, io: b.io, rx: rx, tx: tx, baud: b.baud, src: c.src, clk: f}
	if err := tree.Ungate(gate); err != nil {
		// Unprogrammed; Free hands the resources back.
		return u, err
	}

	u.io.Write(u.reg(chip.UARTCtrl), b.ctrl(c.src))
	u.io.Write(u.reg(chip.UARTClkDiv), div)
	if !u.io.WaitSet(regs.Bit(u.reg(chip.UARTCtrl), chip.UARTBclkRdyBit)) {
		return u, errcode.New(errcode.NotReady, op, h.String()+" baud clock")
	}
	logx.Info(logx.ComponentUART, "built", "uart", h.String(), "clock", c.src.String(),
		"hz", uint32(f), "baud", b.baud, "div", div, "parity", b.parity.String())
	return u, nil
}
