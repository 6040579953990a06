package regs

import "testing"

func TestFieldMask(t *testing.T) {
	cases := []struct {
		f    Field
		mask uint32
		max  uint32
	}{
		{Bit(0, 0), 0x1, 1},
		{Field{Shift: 6, Width: 3}, 0x1C0, 7},
		{Field{Shift: 0, Width: 20}, 0xFFFFF, 0xFFFFF},
		{Field{Shift: 0, Width: 32}, 0xFFFFFFFF, 0xFFFFFFFF},
	}
	for _, c := range cases {
		if got := c.f.Mask(); got != c.mask {
			t.Fatalf("%+v mask = %#x, want %#x", c.f, got, c.mask)
		}
		if got := c.f.Max(); got != c.max {
			t.Fatalf("%+v max = %#x, want %#x", c.f, got, c.max)
		}
	}
}

func TestModifyRunsInsideCriticalSection(t *testing.T) {
	sim := NewSim()
	sim.Poke(0x10, 0xFFFF_0000)

	var entered int
	io := NewIO(sim, func(fn func()) { entered++; fn() })

	f := Field{Addr: 0x10, Shift: 4, Width: 4}
	io.Modify(f, 0xA)
	if got := sim.Peek(0x10); got != 0xFFFF_00A0 {
		t.Fatalf("register = %#x, want %#x", got, 0xFFFF_00A0)
	}
	if io.Get(f) != 0xA {
		t.Fatalf("Get = %#x", io.Get(f))
	}
	io.ClearBits(0x10, 0xFFFF_0000)
	if got := sim.Peek(0x10); got != 0xA0 {
		t.Fatalf("register after clear = %#x", got)
	}
	if entered != 2 {
		t.Fatalf("critical section entered %d times, want 2", entered)
	}
}

func TestSimHooksAndLog(t *testing.T) {
	sim := NewSim()
	// write-1-to-set alias at 0x04 for register 0x00
	sim.OnWrite(0x04, func(m Mem, _, v uint32) { m.Store(0x00, m.Load(0x00)|v) })
	sim.OnRead(0x08, func(m Mem, _ uint32) uint32 { return m.Load(0x00) << 1 })
	sim.Fill(0x1000, 0x100, 0xFFFF_FFFF)

	sim.Write(0x04, 0x1)
	sim.Write(0x04, 0x4)
	if got := sim.Read(0x00); got != 0x5 {
		t.Fatalf("aliased register = %#x, want 0x5", got)
	}
	if got := sim.Read(0x08); got != 0xA {
		t.Fatalf("read hook = %#x, want 0xA", got)
	}
	if got := sim.Read(0x1010); got != 0xFFFF_FFFF {
		t.Fatalf("filled region = %#x", got)
	}
	if sim.WriteCount() != 2 || sim.Writes()[1] != (Access{Addr: 0x04, Value: 0x4}) {
		t.Fatalf("write log mismatch: %+v", sim.Writes())
	}
}

func TestWaitBounded(t *testing.T) {
	sim := NewSim()
	io := NewIO(sim, nil)
	if io.WaitSet(Bit(0x20, 3)) {
		t.Fatal("WaitSet on a never-set bit should give up")
	}
	sim.Poke(0x20, 1<<3)
	if !io.WaitSet(Bit(0x20, 3)) || io.WaitClear(Bit(0x20, 3)) {
		t.Fatal("wait results mismatch")
	}
}
