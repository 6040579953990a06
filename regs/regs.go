// Package regs is the register access facade the HAL is written against.
//
// Peripheral code never dereferences addresses itself: it reads and writes
// 32-bit registers through a Bus and names sub-ranges of registers with
// Field. On the MCU the Bus is memory-mapped I/O; on a host it is the Sim.
package regs

// Bus reads and writes whole 32-bit registers. Each call is a single load or
// store with no implicit retry.
type Bus interface {
	Read(addr uint32) uint32
	Write(addr, v uint32)
}

// CriticalSection runs fn with interrupts (or any other preempting context)
// excluded. The HAL never implements one; the runtime supplies it.
type CriticalSection func(fn func())

// NoCriticalSection runs fn directly. Suitable when no register is shared
// between foreground and interrupt context.
func NoCriticalSection(fn func()) { fn() }

// SpinLimit bounds every hardware ready-flag poll in the HAL.
const SpinLimit = 10_000

// Field is a contiguous run of bits inside one register.
type Field struct {
	Addr  uint32
	Shift uint8
	Width uint8
}

// Bit returns the single-bit field at position n of the register at addr.
func Bit(addr uint32, n uint8) Field { return Field{Addr: addr, Shift: n, Width: 1} }

// Mask returns the in-register mask of f.
func (f Field) Mask() uint32 {
	if f.Width >= 32 {
		return ^uint32(0)
	}
	return ((uint32(1) << f.Width) - 1) << f.Shift
}

// Max returns the largest value f can hold.
func (f Field) Max() uint32 { return f.Mask() >> f.Shift }

// IO binds a Bus to the critical-section hook used for read-modify-write.
type IO struct {
	Bus Bus
	CS  CriticalSection
}

// NewIO returns an IO for bus. A nil cs means NoCriticalSection.
func NewIO(bus Bus, cs CriticalSection) IO {
	if cs == nil {
		cs = NoCriticalSection
	}
	return IO{Bus: bus, CS: cs}
}

func (io IO) Read(addr uint32) uint32 { return io.Bus.Read(addr) }
func (io IO) Write(addr, v uint32)    { io.Bus.Write(addr, v) }

// Get returns the value of f.
func (io IO) Get(f Field) uint32 {
	return (io.Bus.Read(f.Addr) & f.Mask()) >> f.Shift
}

// IsSet reports whether any bit of f is set.
func (io IO) IsSet(f Field) bool { return io.Get(f) != 0 }

// Modify replaces f with v inside the critical section. Bits of v beyond the
// field width are dropped.
func (io IO) Modify(f Field, v uint32) {
	io.ModifyMask(f.Addr, f.Mask(), v<<f.Shift)
}

// ModifyMask replaces the bits selected by mask with the same bits of v,
// inside the critical section.
func (io IO) ModifyMask(addr, mask, v uint32) {
	cs := io.CS
	if cs == nil {
		cs = NoCriticalSection
	}
	cs(func() {
		old := io.Bus.Read(addr)
		io.Bus.Write(addr, (old&^mask)|(v&mask))
	})
}

// SetBits sets mask bits with a read-modify-write.
func (io IO) SetBits(addr, mask uint32) { io.ModifyMask(addr, mask, mask) }

// ClearBits clears mask bits with a read-modify-write.
func (io IO) ClearBits(addr, mask uint32) { io.ModifyMask(addr, mask, 0) }

// WaitSet polls until f reads non-zero, giving up after SpinLimit reads.
func (io IO) WaitSet(f Field) bool {
	for i := 0; i < SpinLimit; i++ {
		if io.IsSet(f) {
			return true
		}
	}
	return false
}

// WaitClear polls until f reads zero, giving up after SpinLimit reads.
func (io IO) WaitClear(f Field) bool {
	for i := 0; i < SpinLimit; i++ {
		if !io.IsSet(f) {
			return true
		}
	}
	return false
}
