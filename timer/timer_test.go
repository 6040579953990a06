package timer

import (
	"errors"
	"reflect"
	"testing"

	"maxhal/chip"
	"maxhal/clock"
	"maxhal/errcode"
	"maxhal/mode"
	"maxhal/periph"
	"maxhal/regs"
)

func newTimer(t *testing.T, n uint8) (*chip.Sim, *clock.Tree, Unconfigured) {
	t.Helper()
	sim := chip.NewSim()
	io := regs.NewIO(sim, nil)
	tree, err := clock.NewTree(io, chip.Topology())
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	reg := periph.NewRegistry(chip.Resources()...)
	h, err := reg.Claim(periph.Unit(periph.KindTimer, n))
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	u, err := New(h, io, tree)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sim, tree, u
}

func TestNewUngates(t *testing.T) {
	_, tree, u := newTimer(t, 4)
	if tree.Gated("tmr4") {
		t.Fatal("tmr4 still gated")
	}
	d, err := u.IntoDisabled()
	if err != nil {
		t.Fatalf("IntoDisabled: %v", err)
	}
	if !tree.Gated("tmr4") {
		t.Fatal("disabled timer left clocked")
	}
	if _, err := d.IntoUnconfigured(); err != nil {
		t.Fatalf("IntoUnconfigured: %v", err)
	}
	if tree.Gated("tmr4") {
		t.Fatal("tmr4 gated after IntoUnconfigured")
	}
}

func TestPrescale(t *testing.T) {
	cases := []struct {
		tick clock.Hz
		code uint32
		ok   bool
	}{
		{0, 0, true},
		{30 * clock.MHz, 0, true},
		{7_500_000, 2, true},
		{1 * clock.MHz, 0, false},
		{30 * clock.MHz / 8192, 0, false},
		{60 * clock.MHz, 0, false},
	}
	for _, tc := range cases {
		code, err := prescale("test", 30*clock.MHz, tc.tick)
		if (err == nil) != tc.ok {
			t.Fatalf("tick %d: err = %v", tc.tick, err)
		}
		if err == nil && code != tc.code {
			t.Fatalf("tick %d: code %d, want %d", tc.tick, code, tc.code)
		}
	}
}

func TestContinuousCounts(t *testing.T) {
	sim, _, u := newTimer(t, 1)
	c, err := u.IntoContinuous(Config{Tick: 7_500_000, Period: 7_500})
	if err != nil {
		t.Fatalf("IntoContinuous: %v", err)
	}
	if c.Tick() != 7_500_000 {
		t.Fatalf("Tick = %d", c.Tick())
	}
	base := chip.TimerBase(1)
	ctrl := sim.Peek(base + chip.TMRCtrl0)
	if ctrl&0xF != chip.TMRModeContinuous || ctrl>>chip.TMRClkDivShift&0xF != 2 {
		t.Fatalf("CTRL0 = %#x", ctrl)
	}
	if sim.Peek(base+chip.TMRCmp) != 7_500 {
		t.Fatalf("CMP = %d", sim.Peek(base+chip.TMRCmp))
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sim.Peek(base+chip.TMRCtrl0)&(1<<chip.TMREnBit) == 0 {
		t.Fatal("EN not set")
	}
	sim.SetTimerCount(1, 42)
	if n, _ := c.Count(); n != 42 {
		t.Fatalf("Count = %d", n)
	}
	if e, _ := c.Expired(); e {
		t.Fatal("expired too early")
	}
	sim.ExpireTimer(1)
	if e, _ := c.Expired(); !e {
		t.Fatal("not expired")
	}
	if err := c.Ack(); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if e, _ := c.Expired(); e {
		t.Fatal("Ack did not clear")
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sim.Peek(base+chip.TMRCtrl0)&(1<<chip.TMREnBit) != 0 {
		t.Fatal("EN still set")
	}
}

func TestPWMDuty(t *testing.T) {
	sim, _, u := newTimer(t, 0)
	p, err := u.IntoPWM(PWMConfig{Period: 1000, Duty: 250, ActiveLow: true})
	if err != nil {
		t.Fatalf("IntoPWM: %v", err)
	}
	base := chip.TimerBase(0)
	if sim.Peek(base+chip.TMRCtrl1)&(1<<chip.TMRCtrl1OutEnBit) == 0 {
		t.Fatal("output not enabled")
	}
	if sim.Peek(base+chip.TMRCtrl0)&(1<<chip.TMRPolBit) == 0 {
		t.Fatal("polarity not inverted")
	}
	if err := p.SetDuty(600); err != nil {
		t.Fatalf("SetDuty: %v", err)
	}
	if d, _ := p.Duty(); d != 600 {
		t.Fatalf("Duty = %d", d)
	}
	if err := p.SetDuty(1001); !errors.Is(err, errcode.InvalidDescriptor) {
		t.Fatalf("SetDuty(1001): %v", err)
	}
}

func TestRejectedConfigLeavesTimer(t *testing.T) {
	cases := []struct {
		name string
		run  func(Unconfigured) error
	}{
		{"zero period", func(u Unconfigured) error { _, err := u.IntoOneShot(Config{}); return err }},
		{"bad tick", func(u Unconfigured) error {
			_, err := u.IntoContinuous(Config{Tick: 1 * clock.MHz, Period: 10})
			return err
		}},
		{"duty", func(u Unconfigured) error { _, err := u.IntoPWM(PWMConfig{Period: 10, Duty: 11}); return err }},
	}
	for _, tc := range cases {
		sim, _, u := newTimer(t, 2)
		before := sim.WriteCount()
		if err := tc.run(u); !errors.Is(err, errcode.InvalidDescriptor) {
			t.Fatalf("%s: err = %v", tc.name, err)
		}
		if sim.WriteCount() != before {
			t.Fatalf("%s: registers written", tc.name)
		}
		if err := u.Check(); err != nil {
			t.Fatalf("%s: handle consumed: %v", tc.name, err)
		}
	}
}

func TestStaleAfterTransition(t *testing.T) {
	_, _, u := newTimer(t, 3)
	o, err := u.IntoOneShot(Config{Period: 5})
	if err != nil {
		t.Fatalf("IntoOneShot: %v", err)
	}
	if _, err := o.IntoContinuous(Config{Period: 5}); err != nil {
		t.Fatalf("IntoContinuous: %v", err)
	}
	if err := o.Start(); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("stale Start: %v", err)
	}
	if _, err := u.IntoPWM(PWMConfig{Period: 5}); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("stale IntoPWM: %v", err)
	}
}

func TestStaleDisabledLeavesGate(t *testing.T) {
	sim, tree, u := newTimer(t, 2)
	d, err := u.IntoDisabled()
	if err != nil {
		t.Fatalf("IntoDisabled: %v", err)
	}
	u2, err := d.IntoUnconfigured()
	if err != nil {
		t.Fatalf("IntoUnconfigured: %v", err)
	}
	if _, err := u2.IntoDisabled(); err != nil {
		t.Fatalf("IntoDisabled again: %v", err)
	}
	before := sim.WriteCount()
	if _, err := d.IntoUnconfigured(); !errors.Is(err, errcode.StaleHandle) {
		t.Fatalf("stale IntoUnconfigured: %v", err)
	}
	if !tree.Gated("tmr2") || sim.WriteCount() != before {
		t.Fatal("stale copy woke the timer clock")
	}
}

var typed = map[mode.State]reflect.Type{
	ModeUnconfigured: reflect.TypeOf(Unconfigured{}),
	ModeOneShot:      reflect.TypeOf(OneShot{}),
	ModeContinuous:   reflect.TypeOf(Continuous{}),
	ModePWM:          reflect.TypeOf(PWM{}),
	ModeDisabled:     reflect.TypeOf(Disabled{}),
}

func descFor(m mode.State) []reflect.Value {
	switch m {
	case ModeOneShot, ModeContinuous:
		return []reflect.Value{reflect.ValueOf(Config{Period: 100})}
	case ModePWM:
		return []reflect.Value{reflect.ValueOf(PWMConfig{Period: 100, Duty: 10})}
	}
	return nil
}

// into calls the typed transition method to m on v.
func into(v reflect.Value, m mode.State) (reflect.Value, bool, error) {
	meth := v.MethodByName("Into" + Graph.Name(m))
	if !meth.IsValid() {
		return reflect.Value{}, false, nil
	}
	out := meth.Call(descFor(m))
	err, _ := out[1].Interface().(error)
	return out[0], true, err
}

func TestEveryPair(t *testing.T) {
	for _, from := range Graph.States() {
		for _, to := range Graph.States() {
			_, _, u := newTimer(t, 5)
			route, ok := Graph.Route(ModeUnconfigured, from)
			if !ok {
				t.Fatalf("%s unreachable", Graph.Name(from))
			}
			v := reflect.ValueOf(u)
			for _, s := range route[1:] {
				next, ok, err := into(v, s)
				if !ok || err != nil {
					t.Fatalf("reach %s: %v", Graph.Name(s), err)
				}
				v = next
			}
			if v.Type() != typed[from] {
				t.Fatalf("reached %s, want %s", v.Type().Name(), typed[from].Name())
			}

			next, has, err := into(v, to)
			if has != Graph.Allowed(from, to) {
				t.Fatalf("%s.Into%s present=%v, edge=%v", Graph.Name(from), Graph.Name(to), has, Graph.Allowed(from, to))
			}
			if !has {
				continue
			}
			if err != nil {
				t.Fatalf("%s -> %s: %v", Graph.Name(from), Graph.Name(to), err)
			}
			if next.Type() != typed[to] {
				t.Fatalf("%s -> %s: got %s", Graph.Name(from), Graph.Name(to), next.Type().Name())
			}
			old := v.MethodByName("Check").Call(nil)[0].Interface()
			if err, _ := old.(error); !errors.Is(err, errcode.StaleHandle) {
				t.Fatalf("%s -> %s: old handle still live", Graph.Name(from), Graph.Name(to))
			}
		}
	}
}
