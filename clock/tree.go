package clock

import (
	"fmt"
	"sync"

	"maxhal/errcode"
	"maxhal/internal/logx"
	"maxhal/regs"
	"maxhal/x/mathx"

	"golang.org/x/exp/slices"
)

type setting struct {
	src Source
	div uint32
}

// Tree is the live clock tree of one chip.
type Tree struct {
	mu    sync.Mutex
	io    regs.IO
	top   Topology
	order []Domain
	osc   map[Source]Oscillator
	spec  map[Domain]DomainSpec
	gates map[string]Gate
	cur   map[Domain]setting
}

// NewTree validates top and reads the current source and divider of each
// domain back from the hardware.
func NewTree(io regs.IO, top Topology) (*Tree, error) {
	order, err := top.Validate()
	if err != nil {
		return nil, err
	}
	t := &Tree{
		io:    io,
		top:   top,
		order: order,
		osc:   make(map[Source]Oscillator, len(top.Oscillators)),
		spec:  make(map[Domain]DomainSpec, len(top.Domains)),
		gates: make(map[string]Gate, len(top.Gates)),
		cur:   make(map[Domain]setting, len(top.Domains)),
	}
	for _, o := range top.Oscillators {
		t.osc[o.Name] = o
	}
	for _, g := range top.Gates {
		t.gates[g.Name] = g
	}
	for _, d := range top.Domains {
		t.spec[d.Name] = d
		t.cur[d.Name] = t.readBack(d)
	}
	return t, nil
}

func (t *Tree) readBack(d DomainSpec) setting {
	s := setting{src: d.Default, div: d.DefaultDiv}
	if s.src == "" {
		s.src = d.Sources[0]
	}
	if s.div == 0 {
		s.div = d.MinDiv
	}
	if d.Sel.Width > 0 {
		code := t.io.Get(d.Sel)
		for src, c := range d.SelCodes {
			if c == code {
				s.src = src
				break
			}
		}
	}
	if d.Div.Width > 0 {
		v := t.io.Get(d.Div)
		if d.Pow2 {
			v = mathx.Pow2[uint32](uint8(v))
		}
		if t.dividerOK(d, v) {
			s.div = v
		}
	}
	return s
}

func (t *Tree) dividerOK(d DomainSpec, div uint32) bool {
	if div < d.MinDiv || div > d.MaxDiv {
		return false
	}
	return !d.Pow2 || mathx.IsPow2(div)
}

// Topology returns the topology the tree was built from.
func (t *Tree) Topology() Topology { return t.top }

// Domains lists domains in dependency order, sources before sinks.
func (t *Tree) Domains() []Domain { return append([]Domain(nil), t.order...) }

// FrequencyOf returns f(source)/divider for d, or 0 for unknown domains.
func (t *Tree) FrequencyOf(d Domain) Hz {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.spec[d]; !ok {
		return 0
	}
	return t.freq(d, nil)
}

// Setting returns the current source and divider of d.
func (t *Tree) Setting(d Domain) (Source, uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cur[d]
	return s.src, s.div, ok
}

func (t *Tree) freq(d Domain, over map[Domain]setting) Hz {
	s, ok := over[d]
	if !ok {
		s = t.cur[d]
	}
	return t.sourceHz(s.src, over) / Hz(s.div)
}

func (t *Tree) sourceHz(src Source, over map[Domain]setting) Hz {
	if o, ok := t.osc[src]; ok {
		return o.Hz
	}
	return t.freq(Domain(src), over)
}

// Enabled reports whether d is running: its source chain ends in an enabled
// oscillator.
func (t *Tree) Enabled(d Domain) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.cur[d]
	return ok && t.sourceEnabled(s.src)
}

func (t *Tree) sourceEnabled(src Source) bool {
	if o, ok := t.osc[src]; ok {
		if o.Enable.Width == 0 {
			return !o.Unsupported
		}
		return t.io.IsSet(o.Enable)
	}
	s, ok := t.cur[Domain(src)]
	return ok && t.sourceEnabled(s.src)
}

// OscillatorEnabled reports the enable state of one oscillator.
func (t *Tree) OscillatorEnabled(src Source) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.osc[src]
	return ok && t.sourceEnabled(src)
}

// OscillatorHz is the nominal frequency of an oscillator, zero if unknown.
func (t *Tree) OscillatorHz(src Source) Hz {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.osc[src].Hz
}

// EnableOscillator turns an oscillator on and waits for its ready flag.
func (t *Tree) EnableOscillator(src Source) error {
	const op = "clock.EnableOscillator"
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.osc[src]
	switch {
	case !ok:
		return errcode.New(errcode.UnroutableSource, op, "unknown oscillator "+string(src))
	case o.Unsupported:
		return errcode.New(errcode.UnsupportedMode, op, string(src)+" cannot be started here")
	}
	if o.Enable.Width > 0 {
		t.io.Modify(o.Enable, 1)
	}
	if o.Ready.Width > 0 && !t.io.WaitSet(o.Ready) {
		return errcode.New(errcode.NotReady, op, string(src))
	}
	logx.Info(logx.ComponentClock, "oscillator enabled", "source", string(src), "hz", uint32(o.Hz))
	return nil
}

// Configure selects src and div for d and returns the resulting frequency.
// On any error the domain keeps its previous setting. Peripherals already
// configured from d are not told about the change.
func (t *Tree) Configure(d Domain, src Source, div uint32) (Hz, error) {
	const op = "clock.Configure"
	t.mu.Lock()
	defer t.mu.Unlock()

	spec, ok := t.spec[d]
	if !ok {
		return 0, errcode.New(errcode.UnknownDomain, op, string(d))
	}
	if !t.dividerOK(spec, div) {
		return 0, errcode.New(errcode.InvalidDivider, op,
			fmt.Sprintf("%s: divider %d outside %d..%d", d, div, spec.MinDiv, spec.MaxDiv))
	}
	if !slices.Contains(spec.Sources, src) {
		return 0, errcode.New(errcode.UnroutableSource, op, fmt.Sprintf("%s cannot feed %s", src, d))
	}
	if !t.sourceEnabled(src) {
		return 0, errcode.New(errcode.SourceDisabled, op, string(src))
	}

	next := setting{src: src, div: div}
	over := map[Domain]setting{d: next}
	for _, g := range t.top.Gates {
		if g.MaxHz == 0 || t.gated(g) || !t.feeds(d, g.Domain) {
			continue
		}
		if f := t.freq(g.Domain, over); f > g.MaxHz {
			return 0, errcode.New(errcode.FrequencyLimit, op,
				fmt.Sprintf("%s would run at %d Hz, limit %d Hz", g.Name, f, g.MaxHz))
		}
	}

	prev := t.cur[d]
	var oldSel, oldDiv uint32
	if spec.Sel.Width > 0 {
		oldSel = t.io.Read(spec.Sel.Addr)
	}
	if spec.Div.Width > 0 {
		oldDiv = t.io.Read(spec.Div.Addr)
	}
	// A growing divider goes in before the source so the domain never
	// overshoots on the way.
	if div > prev.div {
		t.writeDiv(spec, div)
		t.writeSel(spec, src)
	} else {
		t.writeSel(spec, src)
		t.writeDiv(spec, div)
	}
	if spec.Ready.Width > 0 && !t.io.WaitSet(spec.Ready) {
		if spec.Sel.Width > 0 {
			t.io.Write(spec.Sel.Addr, oldSel)
		}
		if spec.Div.Width > 0 {
			t.io.Write(spec.Div.Addr, oldDiv)
		}
		return 0, errcode.New(errcode.NotReady, op, string(d))
	}

	t.cur[d] = next
	hz := t.freq(d, nil)
	logx.Info(logx.ComponentClock, "domain configured",
		"domain", string(d), "source", string(src), "div", div, "hz", uint32(hz))
	return hz, nil
}

func (t *Tree) writeSel(spec DomainSpec, src Source) {
	if spec.Sel.Width > 0 {
		t.io.Modify(spec.Sel, spec.SelCodes[src])
	}
}

func (t *Tree) writeDiv(spec DomainSpec, div uint32) {
	if spec.Div.Width == 0 {
		return
	}
	v := div
	if spec.Pow2 {
		v = uint32(mathx.Log2(div))
	}
	t.io.Modify(spec.Div, v)
}

// feeds reports whether d is x or sits on x's current source chain.
func (t *Tree) feeds(d, x Domain) bool {
	for {
		if x == d {
			return true
		}
		s, ok := t.cur[x]
		if !ok {
			return false
		}
		if _, isDomain := t.spec[Domain(s.src)]; !isDomain {
			return false
		}
		x = Domain(s.src)
	}
}

func (t *Tree) gated(g Gate) bool {
	return g.Disable.Width > 0 && t.io.IsSet(g.Disable)
}

// Ungate starts the clock of one peripheral.
func (t *Tree) Ungate(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, err := t.ungatable("clock.Ungate", name)
	if err != nil {
		return err
	}
	if g.Disable.Width > 0 {
		t.io.Modify(g.Disable, 0)
	}
	logx.Debug(logx.ComponentClock, "ungate", "gate", name)
	return nil
}

// CanUngate reports the error Ungate would return, without writing.
func (t *Tree) CanUngate(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.ungatable("clock.Ungate", name)
	return err
}

func (t *Tree) ungatable(op, name string) (Gate, error) {
	g, ok := t.gates[name]
	if !ok {
		return Gate{}, errcode.New(errcode.UnknownResource, op, name)
	}
	s := t.cur[g.Domain]
	if !t.sourceEnabled(s.src) {
		return Gate{}, errcode.New(errcode.SourceDisabled, op, string(g.Domain))
	}
	if f := t.freq(g.Domain, nil); g.MaxHz > 0 && f > g.MaxHz {
		return Gate{}, errcode.New(errcode.FrequencyLimit, op,
			fmt.Sprintf("%s at %d Hz, limit %d Hz", name, f, g.MaxHz))
	}
	return g, nil
}

// Gate stops the clock of one peripheral.
func (t *Tree) Gate(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.gates[name]
	if !ok {
		return errcode.New(errcode.UnknownResource, "clock.Gate", name)
	}
	if g.Disable.Width > 0 {
		t.io.Modify(g.Disable, 1)
	}
	logx.Debug(logx.ComponentClock, "gate", "gate", name)
	return nil
}

// Gated reports whether a peripheral clock is off.
func (t *Tree) Gated(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.gates[name]
	return !ok || t.gated(g)
}

// Reset pulses the reset line of one peripheral and waits for it to clear.
func (t *Tree) Reset(name string) error {
	const op = "clock.Reset"
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.gates[name]
	if !ok {
		return errcode.New(errcode.UnknownResource, op, name)
	}
	if g.Reset.Width == 0 {
		return errcode.New(errcode.UnsupportedMode, op, name+" has no reset")
	}
	t.io.Modify(g.Reset, 1)
	if !t.io.WaitClear(g.Reset) {
		return errcode.New(errcode.Timeout, op, name)
	}
	return nil
}
