package i2c

import (
	"errors"
	"sync"
	"testing"

	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/gpio"
	"maxhal/periph"
	"maxhal/regs"
)

// memTarget is a register-file device: the first written byte selects a
// register, following bytes are stored there, and reads continue from it.
type memTarget struct {
	mu   sync.Mutex
	addr uint16
	mem  [256]byte
	ptr  byte
	txs  int
}

func (m *memTarget) Tx(addr uint16, w, r []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr != m.addr {
		return errors.New("no device")
	}
	m.txs++
	if len(w) > 0 {
		m.ptr = w[0]
		for _, b := range w[1:] {
			m.mem[m.ptr] = b
			m.ptr++
		}
	}
	for i := range r {
		r[i] = m.mem[m.ptr]
		m.ptr++
	}
	return nil
}

type rig struct {
	sim      *chip.Sim
	io       regs.IO
	tree     *clock.Tree
	reg      *periph.Registry
	scl, sda gpio.Alternate
}

func newRig(t *testing.T) *rig {
	t.Helper()
	sim := chip.NewSim()
	io := regs.NewIO(sim, nil)
	tree, err := clock.NewTree(io, chip.Topology())
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	reg := periph.NewRegistry(chip.Resources()...)
	ph, _ := reg.Claim(periph.Unit(periph.KindPort, 0))
	port, _ := gpio.NewPort(ph, reg, io, nil)
	pins, err := port.Split()
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	scl, err := pins[10].IntoAlternate(gpio.AltConfig{AF: 1, Signal: "I2C0_SCL"})
	if err != nil {
		t.Fatalf("SCL: %v", err)
	}
	sda, err := pins[11].IntoAlternate(gpio.AltConfig{AF: 1, Signal: "I2C0_SDA"})
	if err != nil {
		t.Fatalf("SDA: %v", err)
	}
	return &rig{sim: sim, io: io, tree: tree, reg: reg, scl: scl, sda: sda}
}

func (r *rig) bus(t *testing.T) periph.Handle {
	t.Helper()
	h, err := r.reg.Claim(periph.Unit(periph.KindI2C, 0))
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	return h
}

func newController(t *testing.T, cfg Config) (*chip.Sim, *memTarget, *Controller) {
	t.Helper()
	r := newRig(t)
	c, err := New(r.bus(t), r.io, r.tree, r.scl, r.sda, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	target := &memTarget{addr: 0x50}
	r.sim.AttachI2C(0, target)
	return r.sim, target, c
}

func TestConfigCounts(t *testing.T) {
	cases := []struct {
		pclk  clock.Hz
		hz    clock.Hz
		count uint32
		want  errcode.Code
	}{
		{30 * clock.MHz, 0, 149, errcode.OK},
		{30 * clock.MHz, Fast, 37, errcode.OK},
		{30 * clock.MHz, FastPlus, 14, errcode.OK},
		{30 * clock.MHz, 2 * clock.MHz, 0, errcode.InvalidDescriptor},
		{100 * clock.KHz, Standard, 0, errcode.InvalidDivider},
		{500 * clock.MHz, Standard, 0, errcode.InvalidDivider},
	}
	for _, tc := range cases {
		n, err := Config{Hz: tc.hz}.Validate(tc.pclk)
		if errcode.Of(err) != tc.want {
			t.Fatalf("%d Hz at %d: err = %v, want %s", tc.hz, tc.pclk, err, tc.want)
		}
		if err == nil && n != tc.count {
			t.Fatalf("%d Hz at %d: count %d, want %d", tc.hz, tc.pclk, n, tc.count)
		}
	}
}

func TestNewProgramsClock(t *testing.T) {
	sim, _, c := newController(t, Config{Hz: Fast})
	base := chip.I2CBase(0)
	if sim.Peek(base+chip.I2CClkLo) != 37 || sim.Peek(base+chip.I2CClkHi) != 37 {
		t.Fatalf("CLKLO/HI = %d/%d", sim.Peek(base+chip.I2CClkLo), sim.Peek(base+chip.I2CClkHi))
	}
	if sim.Peek(base+chip.I2CCtrl) != chip.I2CEn|chip.I2CMstMode {
		t.Fatal("controller not enabled")
	}
	if c.Frequency() != Fast {
		t.Fatalf("Frequency = %d", c.Frequency())
	}
}

func TestWriteThenRead(t *testing.T) {
	_, target, c := newController(t, Config{})
	if err := c.Tx(0x50, []byte{0x10, 0xAA, 0xBB, 0xCC}, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := make([]byte, 3)
	if err := c.Tx(0x50, []byte{0x10}, r); err != nil {
		t.Fatalf("read: %v", err)
	}
	if r[0] != 0xAA || r[1] != 0xBB || r[2] != 0xCC {
		t.Fatalf("read % X", r)
	}
	// A plain read continues where the register pointer is.
	if err := c.Tx(0x50, nil, r[:1]); err != nil {
		t.Fatalf("plain read: %v", err)
	}
	if r[0] != 0 {
		t.Fatalf("plain read %#x", r[0])
	}
	if target.txs != 3 {
		t.Fatalf("target saw %d transactions", target.txs)
	}
}

func TestNack(t *testing.T) {
	_, _, c := newController(t, Config{})
	if err := c.Tx(0x51, []byte{1}, nil); !errors.Is(err, errcode.Nack) {
		t.Fatalf("write to absent device: %v", err)
	}
	if err := c.Tx(0x51, []byte{1}, make([]byte, 2)); !errors.Is(err, errcode.Nack) {
		t.Fatalf("read from absent device: %v", err)
	}
	// The bus recovers.
	if err := c.Tx(0x50, []byte{0}, nil); err != nil {
		t.Fatalf("after nack: %v", err)
	}
}

func TestTxArgs(t *testing.T) {
	_, _, c := newController(t, Config{})
	if err := c.Tx(0x80, nil, nil); !errors.Is(err, errcode.InvalidAddress) {
		t.Fatalf("10-bit address: %v", err)
	}
	if err := c.Tx(0x50, nil, make([]byte, MaxRead+1)); !errors.Is(err, errcode.InvalidDescriptor) {
		t.Fatalf("long read: %v", err)
	}
}

func TestScan(t *testing.T) {
	_, _, c := newController(t, Config{})
	found, err := c.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 1 || found[0] != 0x50 {
		t.Fatalf("found %v", found)
	}
}

func TestClose(t *testing.T) {
	_, _, c := newController(t, Config{})
	if _, _, _, err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Tx(0x50, nil, nil); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("Tx after Close: %v", err)
	}
}

func TestLongWrite(t *testing.T) {
	_, target, c := newController(t, Config{})
	w := make([]byte, 33)
	for i := range w {
		w[i] = byte(i)
	}
	w[0] = 0x40
	if err := c.Tx(0x50, w, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	for i := 1; i < len(w); i++ {
		if got := target.mem[0x40+i-1]; got != byte(i) {
			t.Fatalf("mem[%#x] = %#x, want %#x", 0x40+i-1, got, i)
		}
	}
}

func TestTxFIFOStuck(t *testing.T) {
	sim, _, c := newController(t, Config{})
	sim.OnRead(chip.I2CBase(0)+chip.I2CStatus, func(regs.Mem, uint32) uint32 { return chip.I2CTxFull })
	if err := c.Tx(0x50, []byte{1, 2}, nil); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("Tx with a full FIFO: %v", err)
	}
}

func TestNewConsumesPins(t *testing.T) {
	r := newRig(t)
	c, err := New(r.bus(t), r.io, r.tree, r.scl, r.sda, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.scl.Check(); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("caller SCL after New: %v", err)
	}
	if _, err := r.sda.IntoUnconfigured(); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("caller SDA reclaimed after New: %v", err)
	}
	_, scl, sda, err := c.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := scl.Check(); err != nil {
		t.Fatalf("closed SCL: %v", err)
	}
	if _, err := sda.IntoUnconfigured(); err != nil {
		t.Fatalf("closed SDA: %v", err)
	}
}

func TestStaleNewLeavesGate(t *testing.T) {
	r := newRig(t)
	h := r.bus(t)
	c, err := New(h, r.io, r.tree, r.scl, r.sda, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, scl, sda, err := c.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	gate := chip.GateOf(h.ID())
	if err := r.tree.Gate(gate); err != nil {
		t.Fatalf("Gate: %v", err)
	}
	before := r.sim.WriteCount()
	if _, err := New(h, r.io, r.tree, scl, sda, Config{}); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("New with a stale bus handle: %v", err)
	}
	if !r.tree.Gated(gate) || r.sim.WriteCount() != before {
		t.Fatal("stale New touched the hardware")
	}
}
