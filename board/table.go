// Package board holds what a particular board offers and how it is to be
// brought up. Table is the pin-to-function map of the chip package; Config
// is the wiring plan: clocks, pin modes and bus instances.
package board

import (
	_ "embed"
	"fmt"
	"os"

	"maxhal/errcode"
	"maxhal/periph"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

//go:embed max78000.yaml
var rawTable []byte

var defaultTable *Table

func init() {
	t, err := ParseTable(rawTable)
	if err != nil {
		panic("board: embedded table: " + err.Error())
	}
	defaultTable = t
}

// DefaultTable returns the MAX78000 table. Callers must not modify it.
func DefaultTable() *Table { return defaultTable }

// MaxAF is the highest alternate function index a pin can select.
const MaxAF = 4

type PinEntry struct {
	Pin    string   `yaml:"pin"`
	AF     []string `yaml:"af"`
	Analog string   `yaml:"analog,omitempty"`
}

// Table maps pins to the signals they can carry.
type Table struct {
	Chip string     `yaml:"chip"`
	Pins []PinEntry `yaml:"pins"`

	byID map[periph.ID]PinEntry
}

// Choice is one way of routing a signal.
type Choice struct {
	Pin periph.ID
	AF  uint8
}

func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errcode.Wrap(errcode.InvalidDescriptor, "board.ParseTable", err)
	}
	t.byID = make(map[periph.ID]PinEntry, len(t.Pins))
	for _, p := range t.Pins {
		id, err := periph.ParseID(p.Pin)
		if err != nil || id.Kind() != periph.KindPin {
			return nil, errcode.New(errcode.InvalidDescriptor, "board.ParseTable", "bad pin "+p.Pin)
		}
		if _, dup := t.byID[id]; dup {
			return nil, errcode.New(errcode.InvalidDescriptor, "board.ParseTable", "pin listed twice: "+p.Pin)
		}
		if len(p.AF) > MaxAF {
			return nil, errcode.New(errcode.InvalidDescriptor, "board.ParseTable",
				fmt.Sprintf("%s: %d alternate functions, at most %d", p.Pin, len(p.AF), MaxAF))
		}
		t.byID[id] = p
	}
	return &t, nil
}

func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// Signal returns the signal pin carries at alternate function af.
func (t *Table) Signal(pin periph.ID, af uint8) (string, bool) {
	p, ok := t.byID[pin]
	if !ok || af == 0 || int(af) > len(p.AF) || p.AF[af-1] == "" {
		return "", false
	}
	return p.AF[af-1], true
}

// Analog returns the analog channel of pin, if any.
func (t *Table) Analog(pin periph.ID) (string, bool) {
	p, ok := t.byID[pin]
	return p.Analog, ok && p.Analog != ""
}

// Has reports whether pin appears in the table.
func (t *Table) Has(pin periph.ID) bool {
	_, ok := t.byID[pin]
	return ok
}

// Find lists every (pin, af) that carries signal, ordered by pin.
func (t *Table) Find(signal string) []Choice {
	var out []Choice
	for id, p := range t.byID {
		for i, s := range p.AF {
			if s == signal {
				out = append(out, Choice{Pin: id, AF: uint8(i + 1)})
			}
		}
	}
	slices.SortFunc(out, func(a, b Choice) int {
		if a.Pin != b.Pin {
			return int(a.Pin) - int(b.Pin)
		}
		return int(a.AF) - int(b.AF)
	})
	return out
}

// Route returns the alternate function that puts signal on pin.
func (t *Table) Route(pin periph.ID, signal string) (uint8, error) {
	for _, c := range t.Find(signal) {
		if c.Pin == pin {
			return c.AF, nil
		}
	}
	return 0, errcode.New(errcode.PinMismatch, "board.Route", signal+" is not available on "+pin.String())
}

// Signals lists every distinct signal name, sorted.
func (t *Table) Signals() []string {
	var out []string
	for _, p := range t.Pins {
		for _, s := range p.AF {
			if s != "" && !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	slices.Sort(out)
	return out
}
