package chip

import (
	"strconv"

	"maxhal/clock"
	"maxhal/periph"
)

// oscillatorOrder fixes the unit number of each OSC resource.
var oscillatorOrder = [...]clock.Source{IPO, ISO, IBRO, INRO, ERTCO}

// Resources lists every claimable resource of the chip.
func Resources() []periph.ID {
	var ids []periph.ID
	for port := uint8(0); port < NumPorts; port++ {
		ids = append(ids, periph.Unit(periph.KindPort, port))
		for n := uint8(0); n < PinsPerPort[port]; n++ {
			ids = append(ids, periph.Pin(port, n))
		}
	}
	for n := uint8(0); n < NumTimers; n++ {
		ids = append(ids, periph.Unit(periph.KindTimer, n))
	}
	for n := uint8(0); n < NumUARTs; n++ {
		ids = append(ids, periph.Unit(periph.KindUART, n))
	}
	for n := uint8(0); n < NumI2C; n++ {
		ids = append(ids, periph.Unit(periph.KindI2C, n))
	}
	ids = append(ids,
		periph.Unit(periph.KindTRNG, 0),
		periph.Unit(periph.KindFLC, 0),
		periph.Unit(periph.KindICC, 0),
	)
	for n := range oscillatorOrder {
		ids = append(ids, periph.Unit(periph.KindOsc, uint8(n)))
	}
	return ids
}

// Oscillator maps an OSC resource to its clock source.
func Oscillator(id periph.ID) (clock.Source, bool) {
	if id.Kind() != periph.KindOsc || int(id.Unit()) >= len(oscillatorOrder) {
		return "", false
	}
	return oscillatorOrder[id.Unit()], true
}

// OscillatorID is the inverse of Oscillator.
func OscillatorID(src clock.Source) (periph.ID, bool) {
	for n, s := range oscillatorOrder {
		if s == src {
			return periph.Unit(periph.KindOsc, uint8(n)), true
		}
	}
	return 0, false
}

// GateOf returns the clock gate name of a peripheral resource.
func GateOf(id periph.ID) string {
	switch id.Kind() {
	case periph.KindPort:
		return "gpio" + strconv.Itoa(int(id.Unit()))
	case periph.KindTimer:
		return "tmr" + strconv.Itoa(int(id.Unit()))
	case periph.KindUART:
		return "uart" + strconv.Itoa(int(id.Unit()))
	case periph.KindI2C:
		return "i2c" + strconv.Itoa(int(id.Unit()))
	case periph.KindTRNG:
		return "trng"
	}
	return ""
}
