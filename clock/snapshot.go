package clock

type OscillatorInfo struct {
	Name        Source
	Hz          Hz
	Enabled     bool
	Unsupported bool
}

type DomainInfo struct {
	Name    Domain
	Source  Source
	Divider uint32
	Hz      Hz
	Enabled bool
}

type GateInfo struct {
	Name   string
	Domain Domain
	MaxHz  Hz
	Gated  bool
}

// Snapshot is a point-in-time view of the tree for tooling.
type Snapshot struct {
	Oscillators []OscillatorInfo
	Domains     []DomainInfo
	Gates       []GateInfo
}

func (t *Tree) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	var s Snapshot
	for _, o := range t.top.Oscillators {
		s.Oscillators = append(s.Oscillators, OscillatorInfo{
			Name:        o.Name,
			Hz:          o.Hz,
			Enabled:     t.sourceEnabled(o.Name),
			Unsupported: o.Unsupported,
		})
	}
	for _, d := range t.order {
		c := t.cur[d]
		s.Domains = append(s.Domains, DomainInfo{
			Name:    d,
			Source:  c.src,
			Divider: c.div,
			Hz:      t.freq(d, nil),
			Enabled: t.sourceEnabled(c.src),
		})
	}
	for _, g := range t.top.Gates {
		s.Gates = append(s.Gates, GateInfo{
			Name:   g.Name,
			Domain: g.Domain,
			MaxHz:  g.MaxHz,
			Gated:  t.gated(g),
		})
	}
	return s
}
