// Package gpio configures and drives MAX7800x pins. Each pin mode is its
// own type, and a transition method exists only where the mode graph has
// an edge, so an illegal transition does not compile. Dyn offers the same
// transitions checked at run time, for pins configured from data.
package gpio

import "maxhal/mode"

// Pin modes.
const (
	ModeUnconfigured mode.State = iota
	ModeInput
	ModeOutput
	ModeAnalog
	ModeAlternate
	ModeDisabled
)

// Graph is the legal pin transition graph.
var Graph = mode.Register(
	mode.New("pin", "Unconfigured", "Input", "Output", "Analog", "Alternate", "Disabled").
		Allow(ModeUnconfigured, ModeInput, ModeOutput, ModeAnalog, ModeAlternate, ModeDisabled).
		Allow(ModeInput, ModeUnconfigured, ModeOutput, ModeAlternate, ModeDisabled).
		Allow(ModeOutput, ModeUnconfigured, ModeInput, ModeDisabled).
		Allow(ModeAnalog, ModeUnconfigured, ModeDisabled).
		Allow(ModeAlternate, ModeUnconfigured, ModeDisabled).
		Allow(ModeDisabled, ModeUnconfigured),
)
