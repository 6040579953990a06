package icc

import (
	"errors"
	"testing"

	"maxhal/chip"
	"maxhal/errcode"
	"maxhal/periph"
	"maxhal/regs"
)

func TestEnableDisable(t *testing.T) {
	sim := chip.NewSim()
	reg := periph.NewRegistry(chip.Resources()...)
	h, _ := reg.Claim(periph.Unit(periph.KindICC, 0))
	c, err := New(h, regs.NewIO(sim, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !c.Enabled() {
		t.Fatal("not enabled")
	}
	if sim.WriteCount() == 0 || sim.Peek(chip.ICC0+chip.ICCInvalidate) != 1 {
		t.Fatal("cache not invalidated")
	}
	if err := c.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if c.Enabled() {
		t.Fatal("still enabled")
	}
	if err := h.Check(); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("instance handle still live: %v", err)
	}
}
