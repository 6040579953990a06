// Package clock models the clock tree: oscillators feed domains, domains
// feed other domains and peripheral gates. Frequencies are always
// recomputed from the current (source, divider) pairs, never cached.
package clock

import (
	"maxhal/errcode"
	"maxhal/regs"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Hz is a frequency in hertz.
type Hz uint32

const (
	KHz Hz = 1_000
	MHz Hz = 1_000_000
)

// Source names anything a domain can be fed from: an oscillator or another
// domain.
type Source string

// Domain names a derived clock signal.
type Domain string

// Oscillator is a free-running clock source.
type Oscillator struct {
	Name Source
	Hz   Hz
	// Enable is the enable bit. Zero width means the oscillator is always on.
	Enable regs.Field
	// Ready is the ready flag polled after enabling. Zero width means none.
	Ready regs.Field
	// Unsupported marks sources that need other peripherals brought up
	// first (an RTC crystal, for instance); they cannot be enabled here.
	Unsupported bool
}

// DomainSpec describes a configurable domain.
type DomainSpec struct {
	Name    Domain
	Sources []Source
	MinDiv  uint32
	MaxDiv  uint32
	Pow2    bool // divider must be a power of two

	// Sel selects the source; SelCodes maps each source to its field value.
	// Zero width means the source is not software selectable.
	Sel      regs.Field
	SelCodes map[Source]uint32
	// Div holds the divider, as log2 when Pow2 is set, else as is.
	Div regs.Field
	// Ready is polled after each change. Zero width means none.
	Ready regs.Field

	// Reset state, used when the hardware cannot be decoded.
	Default    Source
	DefaultDiv uint32
}

// Gate is a peripheral clock gate fed from a domain.
type Gate struct {
	Name   string
	Domain Domain
	// MaxHz is the fastest clock the peripheral tolerates. Zero means no limit.
	MaxHz Hz
	// Disable gates the clock off when set.
	Disable regs.Field
	// Reset holds the peripheral in reset while set; it self-clears.
	Reset regs.Field
}

// Topology is a whole clock tree.
type Topology struct {
	Oscillators []Oscillator
	Domains     []DomainSpec
	Gates       []Gate
}

// Validate checks names are unique, references resolve, dividers are sane
// and domains do not feed each other in a cycle. It returns the domains in
// dependency order.
func (t Topology) Validate() ([]Domain, error) {
	const op = "clock.Topology"
	ids := make(map[Source]int64)
	g := simple.NewDirectedGraph()
	add := func(s Source) error {
		if _, dup := ids[s]; dup {
			return errcode.New(errcode.InvalidDescriptor, op, "duplicate name "+string(s))
		}
		id := int64(len(ids))
		ids[s] = id
		g.AddNode(simple.Node(id))
		return nil
	}
	for _, o := range t.Oscillators {
		if err := add(o.Name); err != nil {
			return nil, err
		}
	}
	for _, d := range t.Domains {
		if err := add(Source(d.Name)); err != nil {
			return nil, err
		}
		if d.MinDiv == 0 || d.MaxDiv < d.MinDiv {
			return nil, errcode.New(errcode.InvalidDescriptor, op, "bad divider range for "+string(d.Name))
		}
	}
	for _, d := range t.Domains {
		to := ids[Source(d.Name)]
		if len(d.Sources) == 0 {
			return nil, errcode.New(errcode.InvalidDescriptor, op, string(d.Name)+" has no sources")
		}
		for _, s := range d.Sources {
			from, ok := ids[s]
			if !ok {
				return nil, errcode.New(errcode.InvalidDescriptor, op, string(d.Name)+": unknown source "+string(s))
			}
			if from == to {
				return nil, errcode.New(errcode.InvalidDescriptor, op, string(d.Name)+" feeds itself")
			}
			g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}
	domains := make(map[Domain]bool, len(t.Domains))
	for _, d := range t.Domains {
		domains[d.Name] = true
	}
	seen := make(map[string]bool, len(t.Gates))
	for _, gt := range t.Gates {
		if seen[gt.Name] {
			return nil, errcode.New(errcode.InvalidDescriptor, op, "duplicate gate "+gt.Name)
		}
		seen[gt.Name] = true
		if !domains[gt.Domain] {
			return nil, errcode.New(errcode.InvalidDescriptor, op, gt.Name+": unknown domain "+string(gt.Domain))
		}
	}

	// Stabilise by declaration order so listings are repeatable.
	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) int { return int(a.ID() - b.ID()) })
	})
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidDescriptor, op, err)
	}
	names := make(map[int64]Source, len(ids))
	for s, id := range ids {
		names[id] = s
	}
	order := make([]Domain, 0, len(t.Domains))
	for _, n := range sorted {
		if d := Domain(names[n.ID()]); domains[d] {
			order = append(order, d)
		}
	}
	return order, nil
}
