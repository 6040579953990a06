package mode

import (
	"errors"
	"testing"

	"maxhal/errcode"
)

const (
	off State = iota
	idle
	run
	broken
)

func testGraph(family string) *Graph {
	return New(family, "Off", "Idle", "Run", "Broken").
		Allow(off, idle).
		Allow(idle, off, run).
		Allow(run, idle, run)
}

func TestAllowedAndCheck(t *testing.T) {
	g := testGraph("test")

	cases := []struct {
		from, to State
		want     bool
	}{
		{off, idle, true},
		{off, run, false},
		{idle, run, true},
		{run, run, false}, // self edges are never added
		{run, off, false},
		{broken, off, false},
		{off, State(9), false},
	}
	for _, c := range cases {
		if got := g.Allowed(c.from, c.to); got != c.want {
			t.Fatalf("Allowed(%s,%s)=%v, want %v", g.Name(c.from), g.Name(c.to), got, c.want)
		}
		err := g.Check(c.from, c.to)
		if c.want && err != nil {
			t.Fatalf("Check(%d,%d) unexpected error %v", c.from, c.to, err)
		}
		if !c.want && !errors.Is(err, errcode.IllegalTransition) {
			t.Fatalf("Check(%d,%d) = %v, want illegal_transition", c.from, c.to, err)
		}
	}
}

func TestRouteAndReachable(t *testing.T) {
	g := testGraph("test")

	r, ok := g.Route(off, run)
	if !ok || len(r) != 3 || r[0] != off || r[1] != idle || r[2] != run {
		t.Fatalf("Route(off,run) = %v, %v", r, ok)
	}
	if _, ok := g.Route(off, broken); ok {
		t.Fatal("broken is unreachable")
	}
	if !g.Reachable(run, off) || g.Reachable(idle, broken) {
		t.Fatal("reachability mismatch")
	}
	if len(g.Edges()) != 4 {
		t.Fatalf("Edges = %v", g.Edges())
	}
}

func TestParseName(t *testing.T) {
	g := testGraph("test")
	s, ok := g.Parse("Run")
	if !ok || s != run {
		t.Fatalf("Parse(Run) = %v, %v", s, ok)
	}
	if _, ok := g.Parse("run"); ok {
		t.Fatal("names are case sensitive")
	}
	if g.Name(State(7)) != "State(7)" {
		t.Fatalf("Name(7) = %q", g.Name(State(7)))
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register(testGraph("mode_test_family"))
	if g, ok := Lookup("mode_test_family"); !ok || g.Family() != "mode_test_family" {
		t.Fatal("lookup after register failed")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register(testGraph("mode_test_family"))
}
