// Package mode holds the legal mode-transition graphs of each resource
// family. The typed configurators and the dynamically checked path both
// consult the same Graph, so the two can never disagree.
package mode

import (
	"fmt"
	"sync"

	"maxhal/errcode"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// State is a mode within a family. Zero is always the family's
// Unconfigured state.
type State uint8

const Unconfigured State = 0

// Edge is a legal transition.
type Edge struct {
	From, To State
}

// Graph is the directed transition graph of one family.
type Graph struct {
	family string
	names  []string
	g      *simple.DirectedGraph
}

// New creates a graph for family with one node per state name. States are
// numbered in argument order, so names[0] must be the unconfigured state.
func New(family string, names ...string) *Graph {
	g := &Graph{family: family, names: names, g: simple.NewDirectedGraph()}
	for i := range names {
		g.g.AddNode(simple.Node(i))
	}
	return g
}

// Allow adds edges from -> each of to. Self edges are ignored.
func (g *Graph) Allow(from State, to ...State) *Graph {
	for _, t := range to {
		if t == from || !g.valid(from) || !g.valid(t) {
			continue
		}
		g.g.SetEdge(g.g.NewEdge(simple.Node(from), simple.Node(t)))
	}
	return g
}

func (g *Graph) valid(s State) bool { return int(s) < len(g.names) }

func (g *Graph) Family() string { return g.family }

// Name returns the state name, or "State(n)" for unknown values.
func (g *Graph) Name(s State) string {
	if g.valid(s) {
		return g.names[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Parse returns the state with the given name.
func (g *Graph) Parse(name string) (State, bool) {
	i := slices.Index(g.names, name)
	if i < 0 {
		return 0, false
	}
	return State(i), true
}

// States lists all states in order.
func (g *Graph) States() []State {
	out := make([]State, len(g.names))
	for i := range out {
		out[i] = State(i)
	}
	return out
}

// Allowed reports whether from -> to is a single legal edge.
func (g *Graph) Allowed(from, to State) bool {
	if !g.valid(from) || !g.valid(to) {
		return false
	}
	return g.g.HasEdgeFromTo(int64(from), int64(to))
}

// Check returns IllegalTransition when from -> to is not an edge.
func (g *Graph) Check(from, to State) error {
	if g.Allowed(from, to) {
		return nil
	}
	return errcode.New(errcode.IllegalTransition, g.family,
		g.Name(from)+" -> "+g.Name(to))
}

// Reachable reports whether to can be reached from from in any number of
// steps.
func (g *Graph) Reachable(from, to State) bool {
	if !g.valid(from) || !g.valid(to) {
		return false
	}
	return topo.PathExistsIn(g.g, simple.Node(from), simple.Node(to))
}

// Route returns a shortest sequence of states from -> to, both included.
func (g *Graph) Route(from, to State) ([]State, bool) {
	if !g.valid(from) || !g.valid(to) {
		return nil, false
	}
	if from == to {
		return []State{from}, true
	}
	nodes, _ := path.DijkstraFrom(simple.Node(from), g.g).To(int64(to))
	if len(nodes) == 0 {
		return nil, false
	}
	out := make([]State, len(nodes))
	for i, n := range nodes {
		out[i] = State(n.ID())
	}
	return out, true
}

// Edges lists every legal edge ordered by (From, To).
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, f := range g.States() {
		for _, t := range g.States() {
			if g.Allowed(f, t) {
				out = append(out, Edge{From: f, To: t})
			}
		}
	}
	return out
}

var (
	mu       sync.RWMutex
	families = map[string]*Graph{}
)

// Register publishes g under its family name. Registering a family twice
// panics; it only happens from package init.
func Register(g *Graph) *Graph {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := families[g.family]; exists {
		panic(fmt.Sprintf("mode graph already registered for family %q", g.family))
	}
	families[g.family] = g
	return g
}

func Lookup(family string) (*Graph, bool) {
	mu.RLock()
	defer mu.RUnlock()
	g, ok := families[family]
	return g, ok
}

// Families lists the registered family names, sorted.
func Families() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(families))
	for k := range families {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
