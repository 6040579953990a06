// Package flc programs the internal flash through the flash controller.
// Flash bits can only be cleared by a write; setting them needs a page
// erase, so a write that would set a bit fails with NeedsErase.
package flc

import (
	"fmt"

	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/internal/logx"
	"maxhal/periph"
	"maxhal/regs"
)

// ClockHz is the rate the controller divides sys_clk down to.
const ClockHz = 1 * clock.MHz

type FLC struct {
	h  periph.Handle
	io regs.IO
}

var (
	ctrl   = chip.FLC + chip.FLCCtrl
	unlock = regs.Field{Addr: ctrl, Shift: chip.FLCUnlockShift, Width: 4}
	erase  = regs.Field{Addr: ctrl, Shift: chip.FLCEraseShift, Width: 8}
)

// New programs the controller clock divider from the current sys_clk.
// Changing sys_clk later requires a new controller.
func New(h periph.Handle, io regs.IO, tree *clock.Tree) (*FLC, error) {
	const op = "flc.New"
	if err := h.Check(); err != nil {
		return nil, err
	}
	if h.ID().Kind() != periph.KindFLC {
		return nil, errcode.New(errcode.UnknownResource, op, h.ID().String())
	}
	div := uint32(tree.FrequencyOf(chip.SysClk) / ClockHz)
	if div == 0 || div > 0xFF {
		return nil, errcode.New(errcode.InvalidDivider, op,
			fmt.Sprintf("sys_clk %d Hz", tree.FrequencyOf(chip.SysClk)))
	}
	nh, err := h.Advance(1)
	if err != nil {
		return nil, err
	}
	f := &FLC{h: nh, io: io}
	if !f.idle() {
		return nil, errcode.New(errcode.Timeout, op, "controller busy")
	}
	f.io.Write(chip.FLC+chip.FLCClkDiv, div)
	f.io.Write(chip.FLC+chip.FLCIntr, chip.FLCIntrAF|chip.FLCIntrDone)
	return f, nil
}

func (f *FLC) busy() bool {
	return f.io.Read(ctrl)&(chip.FLCPending|chip.FLCWrite|chip.FLCPageErase) != 0
}

func (f *FLC) idle() bool {
	for i := 0; i < regs.SpinLimit; i++ {
		if !f.busy() {
			return true
		}
	}
	return false
}

func checkAddr(op string, addr, align uint32) error {
	if addr < chip.FlashBase || addr >= chip.FlashBase+chip.FlashSize || addr%align != 0 {
		return errcode.New(errcode.InvalidAddress, op, fmt.Sprintf("%#08x", addr))
	}
	return nil
}

// PageOf returns the page holding addr.
func PageOf(addr uint32) (uint32, error) {
	if err := checkAddr("flc.PageOf", addr, 1); err != nil {
		return 0, err
	}
	return (addr - chip.FlashBase) / chip.FlashPageSize, nil
}

// PageAddr returns the first address of page.
func PageAddr(page uint32) (uint32, error) {
	if page >= chip.FlashPageCount {
		return 0, errcode.New(errcode.InvalidAddress, "flc.PageAddr", fmt.Sprintf("page %d", page))
	}
	return chip.FlashBase + page*chip.FlashPageSize, nil
}

func (f *FLC) Read32(addr uint32) (uint32, error) {
	if err := f.h.Check(); err != nil {
		return 0, err
	}
	if err := checkAddr("flc.Read32", addr, 4); err != nil {
		return 0, err
	}
	return f.io.Read(addr), nil
}

func (f *FLC) Read128(addr uint32) ([4]uint32, error) {
	var out [4]uint32
	if err := f.h.Check(); err != nil {
		return out, err
	}
	if err := checkAddr("flc.Read128", addr, 16); err != nil {
		return out, err
	}
	for i := range out {
		out[i] = f.io.Read(addr + 4*uint32(i))
	}
	return out, nil
}

// Write128 programs one 16-byte line.
func (f *FLC) Write128(addr uint32, data [4]uint32) error {
	const op = "flc.Write128"
	if err := f.h.Check(); err != nil {
		return err
	}
	if err := checkAddr(op, addr, 16); err != nil {
		return err
	}
	for i, d := range data {
		if old := f.io.Read(addr + 4*uint32(i)); old&d != d {
			return errcode.New(errcode.NeedsErase, op, fmt.Sprintf("%#08x", addr+4*uint32(i)))
		}
	}
	if !f.idle() {
		return errcode.New(errcode.Timeout, op, "controller busy")
	}
	f.io.Write(chip.FLC+chip.FLCAddr, addr&(chip.FlashSize-1))
	for i, d := range data {
		f.io.Write(chip.FLC+chip.FLCData0+4*uint32(i), d)
	}
	if err := f.commit(op, chip.FLCWrite, 0); err != nil {
		return err
	}
	logx.Debug(logx.ComponentFlash, "write", "addr", addr)
	return nil
}

// Write32 programs one word, leaving the rest of its line as it is.
func (f *FLC) Write32(addr, v uint32) error {
	if err := checkAddr("flc.Write32", addr, 4); err != nil {
		return err
	}
	line := addr &^ 0xF
	data, err := f.Read128(line)
	if err != nil {
		return err
	}
	data[(addr&0xF)/4] = v
	return f.Write128(line, data)
}

// ErasePage sets every bit of the page holding addr.
func (f *FLC) ErasePage(addr uint32) error {
	const op = "flc.ErasePage"
	if err := f.h.Check(); err != nil {
		return err
	}
	if err := checkAddr(op, addr, 1); err != nil {
		return err
	}
	if !f.idle() {
		return errcode.New(errcode.Timeout, op, "controller busy")
	}
	f.io.Write(chip.FLC+chip.FLCAddr, addr&(chip.FlashSize-1))
	if err := f.commit(op, chip.FLCPageErase, chip.FLCErasePage); err != nil {
		return err
	}
	page, _ := PageOf(addr)
	logx.Info(logx.ComponentFlash, "page erased", "page", page)
	return nil
}

// commit unlocks the controller, starts cmd and relocks it.
func (f *FLC) commit(op string, cmd, code uint32) error {
	f.io.Modify(unlock, chip.FLCUnlocked)
	f.io.Modify(erase, code)
	f.io.SetBits(ctrl, cmd)
	ok := f.idle()
	f.io.Modify(erase, 0)
	f.io.Modify(unlock, chip.FLCLocked)
	if !ok {
		return errcode.New(errcode.Timeout, op, "operation did not complete")
	}
	if f.io.Read(chip.FLC+chip.FLCIntr)&chip.FLCIntrAF != 0 {
		f.io.Write(chip.FLC+chip.FLCIntr, chip.FLCIntrAF)
		return errcode.New(errcode.AccessViolation, op, "rejected by controller")
	}
	return nil
}

// DisablePageWrite locks the page holding addr against writes and erases
// until the next reset.
func (f *FLC) DisablePageWrite(addr uint32) error {
	const op = "flc.DisablePageWrite"
	if err := f.h.Check(); err != nil {
		return err
	}
	page, err := PageOf(addr)
	if err != nil {
		return err
	}
	reg := chip.FLC + chip.FLCWelr0
	if page >= 32 {
		reg = chip.FLC + chip.FLCWelr1
	}
	bit := uint32(1) << (page % 32)
	f.io.Write(reg, bit)
	if !f.io.WaitClear(regs.Field{Addr: reg, Shift: uint8(page % 32), Width: 1}) {
		return errcode.New(errcode.Timeout, op, fmt.Sprintf("page %d", page))
	}
	logx.Info(logx.ComponentFlash, "page write-locked", "page", page)
	return nil
}

// Writable reports whether the page holding addr still accepts writes.
func (f *FLC) Writable(addr uint32) (bool, error) {
	page, err := PageOf(addr)
	if err != nil {
		return false, err
	}
	reg := chip.FLC + chip.FLCWelr0
	if page >= 32 {
		reg = chip.FLC + chip.FLCWelr1
	}
	return f.io.Read(reg)&(1<<(page%32)) != 0, nil
}
