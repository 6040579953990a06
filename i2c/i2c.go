// Package i2c is a polled I2C controller for the MAX7800x. Controller
// satisfies tinygo.org/x/drivers.I2C, so sensor drivers written against
// that interface run on it unchanged.
package i2c

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

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*Controller)(nil)

// Bus speeds.
const (
	Standard clock.Hz = 100 * clock.KHz
	Fast     clock.Hz = 400 * clock.KHz
	FastPlus clock.Hz = 1 * clock.MHz
)

// MaxRead is the longest read one transaction can request.
const MaxRead = 255

type Config struct {
	// Hz is the SCL frequency. Zero means Standard.
	Hz clock.Hz
}

func (c Config) hz() clock.Hz {
	if c.Hz == 0 {
		return Standard
	}
	return c.Hz
}

// Validate checks c against the peripheral clock pclk and returns the
// SCL low/high count.
func (c Config) Validate(pclk clock.Hz) (uint32, error) {
	const op = "i2c.Config"
	hz := c.hz()
	if hz > FastPlus {
		return 0, errcode.New(errcode.InvalidDescriptor, op, fmt.Sprintf("%d Hz above fast-mode plus", hz))
	}
	half := mathx.CeilDiv(uint32(pclk), 2*uint32(hz))
	if half < 2 || half-1 > chip.I2CClkMax {
		return 0, errcode.New(errcode.InvalidDivider, op, fmt.Sprintf("%d Hz from pclk %d Hz", hz, pclk))
	}
	return half - 1, nil
}

// Controller owns one I2C block and its two pins.
type Controller struct {
	h        periph.Handle
	n        uint8
	io       regs.IO
	scl, sda gpio.Alternate
	hz       clock.Hz
}

// New programs bus h as a controller. scl and sda must be routed to the
// bus signals in the pin table.
func New(h periph.Handle, io regs.IO, tree *clock.Tree, scl, sda gpio.Alternate, cfg Config) (*Controller, error) {
	const op = "i2c.New"
	if err := h.Check(); err != nil {
		return nil, err
	}
	id := h.ID()
	if id.Kind() != periph.KindI2C || id.Unit() >= chip.NumI2C {
		return nil, errcode.New(errcode.UnknownResource, op, id.String())
	}
	n := id.Unit()
	prefix := "I2C" + strconv.Itoa(int(n))
	for _, want := range []struct {
		p   gpio.Alternate
		sig string
	}{{scl, prefix + "_SCL"}, {sda, prefix + "_SDA"}} {
		sig, err := want.p.Signal()
		if err != nil {
			return nil, err
		}
		if sig != want.sig {
			return nil, errcode.New(errcode.PinMismatch, op,
				fmt.Sprintf("%s carries %s, need %s", want.p.ID(), sig, want.sig))
		}
	}
	count, err := cfg.Validate(tree.FrequencyOf(chip.PClk))
	if err != nil {
		return nil, err
	}
	gate := chip.GateOf(id)
	if err := tree.CanUngate(gate); err != nil {
		return nil, err
	}

	if scl, err = scl.Take(); err != nil {
		return nil, err
	}
	if sda, err = sda.Take(); err != nil {
		return nil, err
	}
	nh, err := h.Advance(1)
	if err != nil {
		return nil, err
	}
	c := &Controller{h: nh, n: n, io: io, scl: scl, sda: sda, hz: cfg.hz()}
	if err := tree.Ungate(gate); err != nil {
		// Unprogrammed; Close hands the resources back.
		return c, err
	}
	c.io.Write(c.reg(chip.I2CCtrl), 0)
	c.io.Write(c.reg(chip.I2CClkLo), count)
	c.io.Write(c.reg(chip.I2CClkHi), count)
	c.io.Write(c.reg(chip.I2CCtrl), chip.I2CEn|chip.I2CMstMode)
	logx.Info(logx.ComponentI2C, "controller up", "bus", nh.String(), "hz", uint32(c.hz))
	return c, nil
}

func (c *Controller) reg(off uint32) uint32 { return chip.I2CBase(c.n) + off }

func (c *Controller) ID() periph.ID { return c.h.ID() }

// Frequency is the SCL rate requested at New.
func (c *Controller) Frequency() clock.Hz { return c.hz }

func (c *Controller) flags() uint32 { return c.io.Read(c.reg(chip.I2CIntFl0)) }

func (c *Controller) nacked() bool {
	return c.flags()&(chip.I2CAddrNack|chip.I2CDataNack) != 0
}

// Tx writes w to the target at addr and then, after a repeated start,
// reads len(r) bytes. Either slice may be empty; both empty probes addr.
func (c *Controller) Tx(addr uint16, w, r []byte) error {
	const op = "i2c.Tx"
	if err := c.h.Check(); err != nil {
		return err
	}
	if addr > 0x7F {
		return errcode.New(errcode.InvalidAddress, op, fmt.Sprintf("%#x", addr))
	}
	if len(r) > MaxRead {
		return errcode.New(errcode.InvalidDescriptor, op, fmt.Sprintf("read of %d bytes", len(r)))
	}

	c.io.Write(c.reg(chip.I2CIntFl0), 0xFFFF_FFFF)
	c.io.Write(c.reg(chip.I2CRxCtrl1), uint32(len(r)))
	c.io.Write(c.reg(chip.I2CMstCtrl), chip.I2CStart)

	if len(w) > 0 || len(r) == 0 {
		if err := c.push(op, uint32(addr)<<1); err != nil {
			return err
		}
		for _, b := range w {
			if err := c.push(op, uint32(b)); err != nil {
				return err
			}
		}
	}
	if len(r) > 0 {
		if len(w) > 0 {
			c.io.Write(c.reg(chip.I2CMstCtrl), chip.I2CRestart)
		}
		if err := c.push(op, uint32(addr)<<1|1); err != nil {
			return err
		}
		if c.nacked() {
			c.stop()
			return errcode.New(errcode.Nack, op, fmt.Sprintf("%#x", addr))
		}
		for i := range r {
			if !c.io.WaitClear(regs.Bit(c.reg(chip.I2CStatus), chip.I2CRxEmptyBit)) {
				c.stop()
				return errcode.New(errcode.Timeout, op, "receive")
			}
			r[i] = byte(c.io.Read(c.reg(chip.I2CFifo)))
		}
	}
	if !c.stop() {
		return errcode.New(errcode.Timeout, op, "stop")
	}
	if c.nacked() {
		return errcode.New(errcode.Nack, op, fmt.Sprintf("%#x", addr))
	}
	logx.Debug(logx.ComponentI2C, "tx", "bus", c.h.String(), "addr", addr, "w", len(w), "r", len(r))
	return nil
}

// push queues one FIFO entry once the transmit FIFO has room. On timeout
// the transaction is stopped.
func (c *Controller) push(op string, v uint32) error {
	if !c.io.WaitClear(regs.Bit(c.reg(chip.I2CStatus), chip.I2CTxFullBit)) {
		c.stop()
		return errcode.New(errcode.Timeout, op, "transmit FIFO full")
	}
	c.io.Write(c.reg(chip.I2CFifo), v)
	return nil
}

// stop ends the transaction and waits for the done flag.
func (c *Controller) stop() bool {
	c.io.Write(c.reg(chip.I2CMstCtrl), chip.I2CStop)
	return c.io.WaitSet(regs.Bit(c.reg(chip.I2CIntFl0), chip.I2CDoneBit))
}

// Scan probes every 7-bit address outside the reserved ranges and returns
// those that acknowledge.
func (c *Controller) Scan() ([]uint16, error) {
	var found []uint16
	for a := uint16(0x08); a < 0x78; a++ {
		err := c.Tx(a, nil, nil)
		switch errcode.Of(err) {
		case errcode.OK:
			found = append(found, a)
		case errcode.Nack:
		default:
			return found, err
		}
	}
	return found, nil
}

// Close disables the controller and returns the bus and its pins.
func (c *Controller) Close() (periph.Handle, gpio.Alternate, gpio.Alternate, error) {
	h, err := c.h.Advance(0)
	if err != nil {
		return periph.Handle{}, gpio.Alternate{}, gpio.Alternate{}, err
	}
	c.io.Write(c.reg(chip.I2CCtrl), 0)
	return h, c.scl, c.sda, nil
}
