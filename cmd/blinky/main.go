//go:build tinygo

// Blinky toggles the red LED of a MAX78000FTHR twice a second from a
// continuous timer and reports each toggle on UART0.
package main

import (
	"maxhal/chip"
	"maxhal/clock"
	"maxhal/gpio"
	"maxhal/hal"
	"maxhal/periph"
	"maxhal/regs"
	"maxhal/timer"
	"maxhal/uart"
	"maxhal/x/conv"
)

// IPO/1 gives a 50 MHz pclk; /64 is 781.25 kHz.
const (
	tick   clock.Hz = 781_250
	period          = uint32(tick / 2)
)

var led = periph.Pin(2, 0)

func check(what string, err error) {
	if err == nil {
		return
	}
	for {
		println(what+":", err.Error())
		for i := 0; i < 1_000_000; i++ {
		}
	}
}

func main() {
	p, err := hal.Take(regs.MMIO{})
	check("take", err)

	ipo, err := p.Oscillator(chip.IPO)
	check("ipo", err)
	check("ipo", ipo.Enable())
	_, err = p.Tree().Configure(chip.SysClk, chip.IPO, 1)
	check("sys_clk", err)

	pin, err := p.Pin(led)
	check("led", err)
	out, err := pin.IntoOutput(gpio.OutputConfig{Initial: true})
	check("led", err)

	console := openConsole(p)
	if console != nil {
		var num [20]byte
		var hex [8]byte
		console.Write([]byte("sys_clk "))
		console.Write(conv.Utoa(num[:], uint64(p.Tree().FrequencyOf(chip.SysClk))))
		console.Write([]byte(" Hz, tmr0 at 0x"))
		console.Write(conv.Hex32(hex[:], chip.TimerBase(0)))
		console.Write([]byte("\r\n"))
	}

	t, err := p.Timer(0)
	check("tmr0", err)
	tmr, err := t.IntoContinuous(timer.Config{Tick: tick, Period: period})
	check("tmr0", err)
	check("tmr0", tmr.Start())

	var num [20]byte
	line := make([]byte, 0, 32)
	for n := uint64(1); ; {
		expired, err := tmr.Expired()
		check("tmr0", err)
		if !expired {
			continue
		}
		check("tmr0", tmr.Ack())
		check("led", out.Toggle())
		if console != nil {
			line = append(line[:0], "blink "...)
			line = append(line, conv.Utoa(num[:], n)...)
			console.Write(append(line, '\r', '\n'))
		}
		n++
	}
}

func openConsole(p *hal.Peripherals) *uart.UART {
	inst, err := p.UART(0)
	check("uart0", err)
	pins := [2]gpio.Alternate{}
	for i, sig := range []string{"UART0_RX", "UART0_TX"} {
		id := periph.Pin(0, uint8(i))
		af, err := p.Table().Route(id, sig)
		check(sig, err)
		u, err := p.Pin(id)
		check(sig, err)
		pins[i], err = u.IntoAlternate(gpio.AltConfig{AF: af, Signal: sig})
		check(sig, err)
	}
	cfg, err := uart.Configure(inst, p.IO(), pins[0], pins[1])
	check("uart0", err)
	u, err := cfg.ClockPCLK().Build(p.Tree())
	if err != nil {
		println("uart0:", err.Error())
		return nil
	}
	return u
}
