package uart

import (
	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/gpio"
	"maxhal/periph"
	"maxhal/regs"
)

// UART is a programmed port. ReadByte and WriteByte never wait; they fail
// with WouldBlock when the FIFO is empty or full.
type UART struct {
	h      periph.Handle
	n      uint8
	io     regs.IO
	rx, tx gpio.Alternate
	baud   uint32
	src    ClockSource
	clk    clock.Hz
}

func (u *UART) reg(off uint32) uint32 { return chip.UARTBase(u.n) + off }

func (u *UART) status() uint32 { return u.io.Read(u.reg(chip.UARTStatus)) }

func (u *UART) ID() periph.ID { return u.h.ID() }

// Baud is the rate requested at Build.
func (u *UART) Baud() uint32 { return u.baud }

// Clock reports the baud clock and the frequency it had at Build.
func (u *UART) Clock() (ClockSource, clock.Hz) { return u.src, u.clk }

// Divisor reads the programmed baud divisor back from the hardware.
func (u *UART) Divisor() uint32 {
	return u.io.Read(u.reg(chip.UARTClkDiv)) & chip.UARTClkDivMask
}

func (u *UART) ReadByte() (byte, error) {
	if err := u.h.Check(); err != nil {
		return 0, err
	}
	if u.status()&chip.UARTStRxEmpty != 0 {
		return 0, errcode.WouldBlock
	}
	return byte(u.io.Read(u.reg(chip.UARTFifo))), nil
}

func (u *UART) WriteByte(c byte) error {
	if err := u.h.Check(); err != nil {
		return err
	}
	if u.status()&chip.UARTStTxFull != 0 {
		return errcode.WouldBlock
	}
	u.io.Write(u.reg(chip.UARTFifo), uint32(c))
	return nil
}

// Read drains what the receive FIFO holds into p. With nothing to read it
// returns 0 and WouldBlock.
func (u *UART) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		c, err := u.ReadByte()
		if err != nil {
			if n > 0 && errcode.Of(err) == errcode.WouldBlock {
				return n, nil
			}
			return n, err
		}
		p[n] = c
		n++
	}
	return n, nil
}

// Write queues as much of p as the transmit FIFO accepts. A short write
// returns WouldBlock.
func (u *UART) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := u.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Flush waits, bounded, until the transmitter is idle.
func (u *UART) Flush() error {
	if err := u.h.Check(); err != nil {
		return err
	}
	for i := 0; i < regs.SpinLimit; i++ {
		if st := u.status(); st&chip.UARTStTxEmpty != 0 && st&chip.UARTStTxBusy == 0 {
			return nil
		}
	}
	return errcode.New(errcode.Timeout, "uart.Flush", u.h.String())
}

// Free stops the UART and returns the instance and its pins. The UART is
// unusable afterwards.
func (u *UART) Free() (periph.Handle, gpio.Alternate, gpio.Alternate, error) {
	h, err := u.h.Advance(0)
	if err != nil {
		return periph.Handle{}, gpio.Alternate{}, gpio.Alternate{}, err
	}
	u.io.Write(u.reg(chip.UARTCtrl), chip.UARTTxFlush|chip.UARTRxFlush)
	u.io.Write(u.reg(chip.UARTClkDiv), 0)
	return h, u.rx, u.tx, nil
}
