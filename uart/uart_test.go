package uart

import (
	"bytes"
	"errors"
	"testing"

	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/gpio"
	"maxhal/periph"
	"maxhal/regs"
)

type rig struct {
	sim  *chip.Sim
	io   regs.IO
	tree *clock.Tree
	reg  *periph.Registry
	pins []gpio.Unconfigured
}

func newRig(t *testing.T, top clock.Topology) *rig {
	t.Helper()
	sim := chip.NewSim()
	io := regs.NewIO(sim, nil)
	tree, err := clock.NewTree(io, top)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	reg := periph.NewRegistry(chip.Resources()...)
	ph, _ := reg.Claim(periph.Unit(periph.KindPort, 0))
	port, err := gpio.NewPort(ph, reg, io, nil)
	if err != nil {
		t.Fatalf("NewPort: %v", err)
	}
	pins, err := port.Split()
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	return &rig{sim: sim, io: io, tree: tree, reg: reg, pins: pins}
}

func (r *rig) alt(t *testing.T, n uint8) gpio.Alternate {
	t.Helper()
	a, err := r.pins[n].IntoAlternate(gpio.AltConfig{AF: 1})
	if err != nil {
		t.Fatalf("P0.%d IntoAlternate: %v", n, err)
	}
	return a
}

func (r *rig) uart0(t *testing.T) Unclocked {
	t.Helper()
	h, err := r.reg.Claim(periph.Unit(periph.KindUART, 0))
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	u, err := Configure(h, r.io, r.alt(t, 0), r.alt(t, 1))
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return u
}

func TestBuildDefaults(t *testing.T) {
	r := newRig(t, chip.Topology())
	u, err := r.uart0(t).ClockPCLK().Build(r.tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// 30 MHz / 115200
	if u.Divisor() != 260 {
		t.Fatalf("Divisor = %d", u.Divisor())
	}
	ctrl := r.sim.Peek(chip.UART0 + chip.UARTCtrl)
	if ctrl>>chip.UARTCharShift&3 != 3 || ctrl&chip.UARTParEn != 0 || ctrl&chip.UARTStop2 != 0 {
		t.Fatalf("CTRL = %#x, want 8N1", ctrl)
	}
	if ctrl&chip.UARTBclkRdy == 0 {
		t.Fatal("baud clock not ready")
	}
	if r.tree.Gated("uart0") {
		t.Fatal("uart0 still gated")
	}
}

func TestFraming(t *testing.T) {
	cases := []struct {
		name string
		set  func(Clocked) Clocked
		bits uint32
	}{
		{"7E2", func(c Clocked) Clocked { return c.DataBits(DataBits7).Parity(ParityEven).StopBits(StopMore) },
			2<<chip.UARTCharShift | chip.UARTParEn | chip.UARTStop2},
		{"5O1", func(c Clocked) Clocked { return c.DataBits(DataBits5).Parity(ParityOdd) },
			chip.UARTParEn | chip.UARTParOdd},
		{"8M1", func(c Clocked) Clocked { return c.Parity(ParityMark) },
			3<<chip.UARTCharShift | chip.UARTParEn | chip.UARTParMark},
	}
	mask := uint32(3<<chip.UARTCharShift | chip.UARTParEn | chip.UARTParOdd | chip.UARTParMark | chip.UARTStop2)
	for _, tc := range cases {
		r := newRig(t, chip.Topology())
		if _, err := tc.set(r.uart0(t).ClockPCLK()).Build(r.tree); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := r.sim.Peek(chip.UART0+chip.UARTCtrl) & mask; got != tc.bits {
			t.Fatalf("%s: CTRL bits %#x, want %#x", tc.name, got, tc.bits)
		}
	}
}

func TestIBROClock(t *testing.T) {
	r := newRig(t, chip.Topology())
	u, err := r.uart0(t).ClockIBRO().Build(r.tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if u.Divisor() != 64 {
		t.Fatalf("Divisor = %d", u.Divisor())
	}
	if r.sim.Peek(chip.UART0+chip.UARTCtrl)>>chip.UARTBclkShift&3 != chip.UARTBclkIBRO {
		t.Fatal("IBRO not selected")
	}
}

func TestRejectedBuild(t *testing.T) {
	cases := []struct {
		name string
		set  func(Clocked) Clocked
		want errcode.Code
	}{
		{"zero baud", func(c Clocked) Clocked { return c.Baud(0) }, errcode.InvalidDescriptor},
		{"9 bits", func(c Clocked) Clocked { return c.DataBits(9) }, errcode.InvalidDescriptor},
		{"parity", func(c Clocked) Clocked { return c.Parity(7) }, errcode.InvalidDescriptor},
		{"too fast", func(c Clocked) Clocked { return c.Baud(40_000_000) }, errcode.InvalidDivider},
	}
	for _, tc := range cases {
		r := newRig(t, chip.Topology())
		c := r.uart0(t).ClockPCLK()
		before := r.sim.WriteCount()
		if _, err := tc.set(c).Build(r.tree); errcode.Of(err) != tc.want {
			t.Fatalf("%s: err = %v, want %s", tc.name, err, tc.want)
		}
		if r.sim.WriteCount() != before {
			t.Fatalf("%s: registers written", tc.name)
		}
		if _, err := c.Build(r.tree); err != nil {
			t.Fatalf("%s: instance lost: %v", tc.name, err)
		}
	}
}

func TestConfigureChecksPins(t *testing.T) {
	r := newRig(t, chip.Topology())
	h, _ := r.reg.Claim(periph.Unit(periph.KindUART, 0))
	tx := r.alt(t, 1)
	rx := r.alt(t, 0)
	if _, err := Configure(h, r.io, tx, rx); !errors.Is(err, errcode.PinMismatch) {
		t.Fatalf("swapped pins: %v", err)
	}
	h1, _ := r.reg.Claim(periph.Unit(periph.KindUART, 1))
	if _, err := Configure(h1, r.io, rx, tx); !errors.Is(err, errcode.PinMismatch) {
		t.Fatalf("UART0 pins on UART1: %v", err)
	}
}

func TestReadWrite(t *testing.T) {
	r := newRig(t, chip.Topology())
	u, err := r.uart0(t).ClockPCLK().Build(r.tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := u.ReadByte(); !errors.Is(err, errcode.WouldBlock) {
		t.Fatalf("empty ReadByte: %v", err)
	}
	if n, err := u.Write([]byte("hello")); n != 5 || err != nil {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if got := r.sim.UARTSent(0); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("sent %q", got)
	}
	r.sim.UARTFeed(0, 'o', 'k')
	buf := make([]byte, 8)
	n, err := u.Read(buf)
	if err != nil || string(buf[:n]) != "ok" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
	if err := u.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestTxFIFOFull(t *testing.T) {
	r := newRig(t, chip.Topology())
	u, err := r.uart0(t).ClockPCLK().Build(r.tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	r.sim.UARTStall(0, true)
	n, err := u.Write(bytes.Repeat([]byte{'x'}, chip.UARTFifoDepth+2))
	if n != chip.UARTFifoDepth || !errors.Is(err, errcode.WouldBlock) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if err := u.Flush(); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("Flush while stalled: %v", err)
	}
	r.sim.UARTStall(0, false)
	if err := u.WriteByte('y'); err != nil {
		t.Fatalf("WriteByte after drain: %v", err)
	}
	if got := len(r.sim.UARTSent(0)); got != chip.UARTFifoDepth+1 {
		t.Fatalf("sent %d bytes", got)
	}
}

// A clock change after Build leaves the divisor alone.
func TestClockChangeDoesNotRetune(t *testing.T) {
	top := chip.Topology()
	for i := range top.Oscillators {
		if top.Oscillators[i].Name == chip.IPO {
			top.Oscillators[i].Hz = 8 * clock.MHz
		}
	}
	r := newRig(t, top)
	if err := r.tree.EnableOscillator(chip.IPO); err != nil {
		t.Fatalf("EnableOscillator: %v", err)
	}
	if _, err := r.tree.Configure(chip.SysClk, chip.IPO, 2); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if f := r.tree.FrequencyOf(chip.PClk); f != 2*clock.MHz {
		t.Fatalf("pclk = %d", f)
	}
	u, err := r.uart0(t).ClockPCLK().Baud(9600).Build(r.tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if u.Divisor() != 208 {
		t.Fatalf("Divisor = %d", u.Divisor())
	}

	if _, err := r.tree.Configure(chip.SysClk, chip.IPO, 1); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if f := r.tree.FrequencyOf(chip.PClk); f != 4*clock.MHz {
		t.Fatalf("pclk = %d", f)
	}
	if u.Divisor() != 208 {
		t.Fatalf("Divisor changed to %d", u.Divisor())
	}
	if _, f := u.Clock(); f != 2*clock.MHz {
		t.Fatalf("UART clock = %d", f)
	}
}

func TestFree(t *testing.T) {
	r := newRig(t, chip.Topology())
	u, err := r.uart0(t).ClockPCLK().Build(r.tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	h, rx, tx, err := u.Free()
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := u.WriteByte('x'); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("WriteByte after Free: %v", err)
	}
	again, err := Configure(h, r.io, rx, tx)
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if _, err := again.ClockPCLK().Baud(57600).Build(r.tree); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
}

func TestBuildConsumesPins(t *testing.T) {
	r := newRig(t, chip.Topology())
	h, _ := r.reg.Claim(periph.Unit(periph.KindUART, 0))
	rx, tx := r.alt(t, 0), r.alt(t, 1)
	c, err := Configure(h, r.io, rx, tx)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	u, err := c.ClockPCLK().Build(r.tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := rx.Check(); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("caller rx after Build: %v", err)
	}
	if _, err := tx.IntoUnconfigured(); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("caller tx reclaimed after Build: %v", err)
	}
	if r.sim.Peek(chip.GPIOBase(0)+chip.GPIOEn0)&(1<<1) != 0 {
		t.Fatal("P0.1 handed back to GPIO")
	}
	if err := u.WriteByte('x'); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}

	_, frx, ftx, err := u.Free()
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := frx.Check(); err != nil {
		t.Fatalf("freed rx: %v", err)
	}
	if _, err := ftx.IntoUnconfigured(); err != nil {
		t.Fatalf("freed tx: %v", err)
	}
}

func TestStaleBuildLeavesGate(t *testing.T) {
	r := newRig(t, chip.Topology())
	c := r.uart0(t).ClockPCLK()
	u, err := c.Build(r.tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, _, _, err := u.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	gate := chip.GateOf(periph.Unit(periph.KindUART, 0))
	if err := r.tree.Gate(gate); err != nil {
		t.Fatalf("Gate: %v", err)
	}
	before := r.sim.WriteCount()
	if _, err := c.Build(r.tree); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("stale Build: %v", err)
	}
	if !r.tree.Gated(gate) || r.sim.WriteCount() != before {
		t.Fatal("stale Build touched the hardware")
	}
}
