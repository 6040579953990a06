package hal

import (
	"maxhal/clock"
	"maxhal/periph"
)

// Osc owns one oscillator. Only the owner can start it.
type Osc struct {
	h    periph.Handle
	src  clock.Source
	tree *clock.Tree
}

func (o *Osc) Source() clock.Source { return o.src }

func (o *Osc) Hz() clock.Hz { return o.tree.OscillatorHz(o.src) }

func (o *Osc) Enabled() bool { return o.tree.OscillatorEnabled(o.src) }

// Enable starts the oscillator and waits, bounded, until it is stable.
func (o *Osc) Enable() error {
	if err := o.h.Check(); err != nil {
		return err
	}
	return o.tree.EnableOscillator(o.src)
}
