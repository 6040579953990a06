package errcode

// Code is a stable error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Class groups codes by the layer that raises them.
type Class uint8

const (
	ClassNone          Class = iota
	ClassConfiguration       // invalid descriptor, illegal transition, ownership
	ClassClock               // clock tree reconfiguration refused
	ClassIO                  // driver-shell conditions
)

func (c Class) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassClock:
		return "clock"
	case ClassIO:
		return "io"
	default:
		return "none"
	}
}

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Configuration
	InvalidDescriptor Code = "invalid_descriptor"
	UnsupportedMode   Code = "unsupported_mode"
	IllegalTransition Code = "illegal_transition"
	StaleHandle       Code = "stale_handle"
	AlreadyClaimed    Code = "already_claimed"
	AlreadyTaken      Code = "already_taken"
	UnknownResource   Code = "unknown_resource"
	PinMismatch       Code = "pin_mismatch"

	// Clock
	InvalidDivider   Code = "invalid_divider"
	UnroutableSource Code = "unroutable_source"
	SourceDisabled   Code = "source_disabled"
	FrequencyLimit   Code = "frequency_limit"
	NotReady         Code = "not_ready"
	UnknownDomain    Code = "unknown_domain"

	// I/O
	WouldBlock      Code = "would_block"
	Timeout         Code = "timeout"
	Nack            Code = "nack"
	InvalidAddress  Code = "invalid_address"
	NeedsErase      Code = "needs_erase"
	AccessViolation Code = "access_violation"

	Error Code = "error" // generic fallback
)

// Class reports the layer a code belongs to.
func (c Code) Class() Class {
	switch c {
	case InvalidDescriptor, UnsupportedMode, IllegalTransition, StaleHandle,
		AlreadyClaimed, AlreadyTaken, UnknownResource, PinMismatch:
		return ClassConfiguration
	case InvalidDivider, UnroutableSource, SourceDisabled, FrequencyLimit,
		NotReady, UnknownDomain:
		return ClassClock
	case WouldBlock, Timeout, Nack, InvalidAddress, NeedsErase, AccessViolation:
		return ClassIO
	}
	return ClassNone
}

// E keeps an operation name, a message and an optional cause next to a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New builds an *E for op.
func New(c Code, op, msg string) error {
	return &E{C: c, Op: op, Msg: msg}
}

// Wrap builds an *E for op around a cause.
func Wrap(c Code, op string, err error) error {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		if inner := u.Unwrap(); inner != nil {
			return Of(inner)
		}
	}
	return Error
}

// ClassOf reports the class of err's code.
func ClassOf(err error) Class { return Of(err).Class() }

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return ClassOf(err) == ClassConfiguration }

// IsClock reports whether err is a clock error.
func IsClock(err error) bool { return ClassOf(err) == ClassClock }
