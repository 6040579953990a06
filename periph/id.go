package periph

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the family of a physical resource.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPin
	KindPort
	KindUART
	KindTimer
	KindI2C
	KindTRNG
	KindFLC
	KindICC
	KindOsc
)

var kindNames = [...]string{
	KindInvalid: "INVALID",
	KindPin:     "P",
	KindPort:    "PORT",
	KindUART:    "UART",
	KindTimer:   "TMR",
	KindI2C:     "I2C",
	KindTRNG:    "TRNG",
	KindFLC:     "FLC",
	KindICC:     "ICC",
	KindOsc:     "OSC",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// ID names one physical resource. It is packed as kind<<16 | unit<<8 | index
// and compares with ==.
type ID uint32

// Pin returns the identity of pin n on port.
func Pin(port, n uint8) ID { return ID(KindPin)<<16 | ID(port)<<8 | ID(n) }

// Unit returns the identity of instance n of a peripheral kind.
func Unit(k Kind, n uint8) ID { return ID(k)<<16 | ID(n)<<8 }

func (id ID) Kind() Kind   { return Kind(id >> 16) }
func (id ID) Unit() uint8  { return uint8(id >> 8) }
func (id ID) Index() uint8 { return uint8(id) }

// String renders P0.5, PORT1, UART0, TMR3, TRNG.
func (id ID) String() string {
	switch k := id.Kind(); k {
	case KindPin:
		return fmt.Sprintf("P%d.%d", id.Unit(), id.Index())
	case KindTRNG:
		return k.String()
	default:
		return k.String() + strconv.Itoa(int(id.Unit()))
	}
}

// ParseID is the inverse of ID.String.
func ParseID(s string) (ID, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	if up == "TRNG" {
		return Unit(KindTRNG, 0), nil
	}
	if rest, ok := strings.CutPrefix(up, "P"); ok && strings.Contains(rest, ".") {
		ps, ns, _ := strings.Cut(rest, ".")
		port, err1 := strconv.ParseUint(ps, 10, 8)
		n, err2 := strconv.ParseUint(ns, 10, 8)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("periph: bad pin %q", s)
		}
		return Pin(uint8(port), uint8(n)), nil
	}
	// Longest prefix first so PORT wins over P.
	for _, k := range []Kind{KindPort, KindUART, KindTimer, KindI2C, KindFLC, KindICC, KindOsc} {
		rest, ok := strings.CutPrefix(up, k.String())
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(rest, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("periph: bad %s unit %q", k, s)
		}
		return Unit(k, uint8(n)), nil
	}
	return 0, fmt.Errorf("periph: unknown resource %q", s)
}
