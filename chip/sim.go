package chip

import (
	"sync"

	"maxhal/regs"
	"maxhal/x/ring"

	"tinygo.org/x/drivers"
)

// Sim is a behavioural model of the MAX78000 register file. It embeds a
// regs.Sim so it can be handed to anything that wants a regs.Bus, and adds
// the side effects the HAL relies on: set/clear aliases, ready flags, UART
// FIFOs, an I2C controller, the TRNG and flash programming.
type Sim struct {
	*regs.Sim

	mu    sync.Mutex
	uarts [NumUARTs]uartModel
	i2cs  [NumI2C]i2cModel
	rng   uint32
}

// uartModel keeps both hardware FIFOs. line holds bytes still arriving on
// RX that did not fit the FIFO; sent is everything shifted out on TX.
type uartModel struct {
	txFIFO  *ring.Ring
	rxFIFO  *ring.Ring
	line    []byte
	sent    []byte
	stalled bool
}

func (u *uartModel) refill() {
	n := u.rxFIFO.WriteFrom(u.line)
	u.line = u.line[n:]
}

func (u *uartModel) drain() {
	var buf [UARTFifoDepth]byte
	n := u.txFIFO.ReadInto(buf[:])
	u.sent = append(u.sent, buf[:n]...)
}

// i2cModel queues FIFO writes in txFIFO. The bus drains one entry per
// STATUS read and everything before a restart, a stop or any other read.
type i2cModel struct {
	target   drivers.I2C
	txFIFO   *ring.Ring
	addr     uint16
	haveAddr bool
	reading  bool
	w        []byte
	rx       []byte
	nack     bool
}

// NewSim returns a model in its power-on state: ISO selected as sys_clk,
// every peripheral clock gated and flash erased.
func NewSim() *Sim {
	s := &Sim{Sim: regs.NewSim(), rng: 0x2545_F491}

	s.Fill(FlashBase, FlashSize, 0xFFFF_FFFF)

	clk := GCR + GCRClkCtrl
	s.Poke(clk, readyFlags(ISOEnable.Mask()))
	s.OnWrite(clk, func(m regs.Mem, addr, v uint32) { m.Store(addr, readyFlags(v)) })

	for _, r := range []uint32{GCR + GCRPclkDis0, GCR + GCRPclkDis1, LPGCR + LPGCRPclkDis} {
		s.Poke(r, 0xFFFF_FFFF)
	}
	for _, r := range []uint32{GCR + GCRRst0, GCR + GCRRst1, LPGCR + LPGCRRst} {
		// Resets complete immediately.
		s.OnWrite(r, func(m regs.Mem, addr, _ uint32) { m.Store(addr, 0) })
	}

	for port := uint8(0); port < NumPorts; port++ {
		s.wireGPIO(GPIOBase(port))
	}
	for n := uint8(0); n < NumTimers; n++ {
		s.wireTimer(TimerBase(n))
	}
	for n := uint8(0); n < NumUARTs; n++ {
		s.wireUART(n)
	}
	for n := uint8(0); n < NumI2C; n++ {
		s.wireI2C(n)
	}
	s.wireTRNG()
	s.wireFLC()
	s.wireICC()
	return s
}

// readyFlags derives the CLKCTRL ready bits from the enable bits in v.
func readyFlags(v uint32) uint32 {
	v &^= IPOReady.Mask() | ISOReady.Mask() | ERTCOReady.Mask()
	v |= SysClkReady.Mask() | IBROReady.Mask() | INROReady.Mask()
	if v&IPOEnable.Mask() != 0 {
		v |= IPOReady.Mask()
	}
	if v&ISOEnable.Mask() != 0 {
		v |= ISOReady.Mask()
	}
	if v&ERTCOEnable.Mask() != 0 {
		v |= ERTCOReady.Mask()
	}
	return v
}

func w1c(m regs.Mem, addr, v uint32) { m.Store(addr, m.Load(addr)&^v) }

func (s *Sim) wireGPIO(base uint32) {
	for _, r := range []uint32{GPIOEn0, GPIOOutEn, GPIOOut, GPIOEn1, GPIOEn2} {
		reg := base + r
		s.OnWrite(reg+GPIOSet, func(m regs.Mem, _, v uint32) { m.Store(reg, m.Load(reg)|v) })
		s.OnWrite(reg+GPIOClr, func(m regs.Mem, _, v uint32) { m.Store(reg, m.Load(reg)&^v) })
	}
	s.Poke(base+GPIOEn0, 0xFFFF_FFFF)
	s.Poke(base+GPIOInEn, 0xFFFF_FFFF)
	// IN shows driven outputs, and the externally applied level elsewhere.
	s.OnRead(base+GPIOIn, func(m regs.Mem, addr uint32) uint32 {
		outen := m.Load(base + GPIOOutEn)
		return m.Load(addr)&^outen | m.Load(base+GPIOOut)&outen
	})
}

func (s *Sim) wireTimer(base uint32) {
	s.OnWrite(base+TMRCtrl1, func(m regs.Mem, addr, v uint32) {
		if v&(1<<TMRCtrl1ClkEnBit) != 0 {
			v |= 1 << TMRCtrl1ClkRdyBit
		} else {
			v &^= 1 << TMRCtrl1ClkRdyBit
		}
		m.Store(addr, v)
	})
	s.OnWrite(base+TMRIntFl, w1c)
}

func (s *Sim) wireUART(n uint8) {
	base := UARTBase(n)
	s.uarts[n] = uartModel{txFIFO: ring.New(UARTFifoDepth), rxFIFO: ring.New(UARTFifoDepth)}
	s.OnWrite(base+UARTCtrl, func(m regs.Mem, addr, v uint32) {
		s.mu.Lock()
		u := &s.uarts[n]
		if v&UARTTxFlush != 0 {
			u.txFIFO.Discard()
		}
		if v&UARTRxFlush != 0 {
			u.rxFIFO.Discard()
			u.line = nil
		}
		s.mu.Unlock()
		v &^= UARTTxFlush | UARTRxFlush
		if v&UARTBclkEn != 0 {
			v |= UARTBclkRdy
		} else {
			v &^= UARTBclkRdy
		}
		m.Store(addr, v)
	})
	s.OnRead(base+UARTStatus, func(regs.Mem, uint32) uint32 {
		s.mu.Lock()
		defer s.mu.Unlock()
		u := &s.uarts[n]
		var st uint32
		switch {
		case u.rxFIFO.Len() == 0:
			st |= UARTStRxEmpty
		case u.rxFIFO.Full():
			st |= UARTStRxFull
		}
		switch {
		case u.txFIFO.Len() == 0:
			st |= UARTStTxEmpty
		case u.txFIFO.Full():
			st |= UARTStTxFull | UARTStTxBusy
		default:
			st |= UARTStTxBusy
		}
		return st
	})
	s.OnWrite(base+UARTFifo, func(_ regs.Mem, _, v uint32) {
		s.mu.Lock()
		defer s.mu.Unlock()
		u := &s.uarts[n]
		// A full FIFO drops the byte, as the hardware does.
		u.txFIFO.Push(byte(v))
		if !u.stalled {
			u.drain()
		}
	})
	s.OnRead(base+UARTFifo, func(regs.Mem, uint32) uint32 {
		s.mu.Lock()
		defer s.mu.Unlock()
		u := &s.uarts[n]
		b, _ := u.rxFIFO.Pop()
		u.refill()
		return uint32(b)
	})
}

// UARTFeed queues bytes on the receive line of UART n. The first
// UARTFifoDepth land in the RX FIFO; the rest follow as it drains.
func (s *Sim) UARTFeed(n uint8, data ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &s.uarts[n]
	u.line = append(u.line, data...)
	u.refill()
}

// UARTSent returns everything UART n has shifted out.
func (s *Sim) UARTSent(n uint8) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.uarts[n].sent...)
}

// UARTStall stops (or restarts) the transmitter of UART n. While stalled
// the TX FIFO fills up; restarting drains it.
func (s *Sim) UARTStall(n uint8, stalled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &s.uarts[n]
	u.stalled = stalled
	if !stalled {
		u.drain()
	}
}

func (s *Sim) wireI2C(n uint8) {
	base := I2CBase(n)
	s.i2cs[n].txFIFO = ring.New(I2CFifoDepth)
	s.OnWrite(base+I2CIntFl0, w1c)
	s.OnRead(base+I2CIntFl0, func(m regs.Mem, addr uint32) uint32 {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.i2cDrain(m, n, I2CFifoDepth)
		return m.Load(addr)
	})
	s.OnWrite(base+I2CMstCtrl, func(m regs.Mem, _, v uint32) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c := &s.i2cs[n]
		switch {
		case v&I2CStart != 0:
			c.txFIFO.Discard()
			*c = i2cModel{target: c.target, txFIFO: c.txFIFO}
		case v&I2CRestart != 0:
			s.i2cDrain(m, n, I2CFifoDepth)
			c.haveAddr = false
		case v&I2CStop != 0:
			s.i2cDrain(m, n, I2CFifoDepth)
			if c.haveAddr && !c.reading && !c.nack {
				c.nack = s.transfer(c, 0)
			}
			fl := m.Load(base + I2CIntFl0)
			if c.nack {
				fl |= I2CAddrNack
			}
			m.Store(base+I2CIntFl0, fl|I2CDone)
		}
	})
	s.OnWrite(base+I2CFifo, func(_ regs.Mem, _, v uint32) {
		s.mu.Lock()
		defer s.mu.Unlock()
		// A full FIFO drops the write.
		s.i2cs[n].txFIFO.Push(byte(v))
	})
	s.OnRead(base+I2CFifo, func(m regs.Mem, _ uint32) uint32 {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.i2cDrain(m, n, I2CFifoDepth)
		c := &s.i2cs[n]
		if len(c.rx) == 0 {
			return 0xFF
		}
		b := c.rx[0]
		c.rx = c.rx[1:]
		return uint32(b)
	})
	s.OnRead(base+I2CStatus, func(m regs.Mem, _ uint32) uint32 {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.i2cDrain(m, n, 1)
		c := &s.i2cs[n]
		var st uint32
		if len(c.rx) == 0 {
			st |= I2CRxEmpty
		}
		if c.txFIFO.Full() {
			st |= I2CTxFull
		}
		return st
	})
}

// i2cDrain moves up to max queued FIFO entries onto the bus.
func (s *Sim) i2cDrain(m regs.Mem, n uint8, max int) {
	base := I2CBase(n)
	c := &s.i2cs[n]
	for i := 0; i < max; i++ {
		v, ok := c.txFIFO.Pop()
		if !ok {
			return
		}
		if c.haveAddr {
			c.w = append(c.w, v)
			continue
		}
		c.addr = uint16(v>>1) & 0x7F
		c.haveAddr = true
		if v&1 == 0 {
			continue
		}
		c.reading = true
		c.nack = s.transfer(c, int(m.Load(base+I2CRxCtrl1)&0xFF))
		if c.nack {
			m.Store(base+I2CIntFl0, m.Load(base+I2CIntFl0)|I2CAddrNack)
		}
	}
}

// transfer runs one bus transaction against the attached target and
// reports whether it was NACKed.
func (s *Sim) transfer(c *i2cModel, rlen int) bool {
	if c.target == nil {
		return true
	}
	r := make([]byte, rlen)
	if err := c.target.Tx(c.addr, c.w, r); err != nil {
		return true
	}
	c.rx = r
	return false
}

// AttachI2C connects a target to bus n. The target sees every transaction;
// returning an error NACKs it.
func (s *Sim) AttachI2C(n uint8, target drivers.I2C) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.i2cs[n].target = target
}

func (s *Sim) wireTRNG() {
	s.Poke(TRNG+TRNGStatus, TRNGReady)
	s.OnRead(TRNG+TRNGData, func(regs.Mem, uint32) uint32 {
		s.mu.Lock()
		defer s.mu.Unlock()
		x := s.rng
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		s.rng = x
		return x
	})
}

func (s *Sim) wireFLC() {
	s.Poke(FLC+FLCCtrl, FLCLocked<<FLCUnlockShift)
	s.Poke(FLC+FLCWelr0, 0xFFFF_FFFF)
	s.Poke(FLC+FLCWelr1, 0xFFFF_FFFF)
	s.OnWrite(FLC+FLCIntr, w1c)
	s.OnWrite(FLC+FLCWelr0, w1c)
	s.OnWrite(FLC+FLCWelr1, w1c)
	s.OnWrite(FLC+FLCCtrl, func(m regs.Mem, addr, v uint32) {
		op := v & (FLCWrite | FLCPageErase)
		m.Store(addr, v&^(FLCWrite|FLCPageErase|FLCPending))
		if op == 0 {
			return
		}
		target := m.Load(FLC+FLCAddr) & (FlashSize - 1)
		page := target / FlashPageSize
		welr := FLC + FLCWelr0
		if page >= 32 {
			welr = FLC + FLCWelr1
		}
		unlocked := v>>FLCUnlockShift == FLCUnlocked
		if !unlocked || m.Load(welr)&(1<<(page%32)) == 0 {
			m.Store(FLC+FLCIntr, m.Load(FLC+FLCIntr)|FLCIntrAF)
			return
		}
		switch {
		case op&FLCWrite != 0:
			line := FlashBase + target&^0xF
			for i := uint32(0); i < 4; i++ {
				a := line + 4*i
				m.Store(a, m.Load(a)&m.Load(FLC+FLCData0+4*i))
			}
		case (v>>FLCEraseShift)&0xFF == FLCErasePage:
			start := FlashBase + page*FlashPageSize
			for a := start; a < start+FlashPageSize; a += 4 {
				m.Store(a, 0xFFFF_FFFF)
			}
		}
		m.Store(FLC+FLCIntr, m.Load(FLC+FLCIntr)|FLCIntrDone)
	})
}

func (s *Sim) wireICC() {
	s.Poke(ICC0+ICCCtrl, ICCReady)
	s.OnWrite(ICC0+ICCCtrl, func(m regs.Mem, addr, v uint32) { m.Store(addr, v|ICCReady) })
}

// SetInput drives the external level of one pin.
func (s *Sim) SetInput(port, pin uint8, high bool) {
	reg := GPIOBase(port) + GPIOIn
	v := s.Peek(reg)
	if high {
		v |= 1 << pin
	} else {
		v &^= 1 << pin
	}
	s.Poke(reg, v)
}

// ExpireTimer raises the compare flag of timer n.
func (s *Sim) ExpireTimer(n uint8) {
	reg := TimerBase(n) + TMRIntFl
	s.Poke(reg, s.Peek(reg)|TMRIrqA)
}

// SetTimerCount sets the counter of timer n.
func (s *Sim) SetTimerCount(n uint8, v uint32) { s.Poke(TimerBase(n)+TMRCnt, v) }
