//go:build tinygo

package regs

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO is the memory-mapped Bus of the running chip.
type MMIO struct{}

var _ Bus = MMIO{}

func (MMIO) Read(addr uint32) uint32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Get()
}

func (MMIO) Write(addr, v uint32) {
	(*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Set(v)
}
