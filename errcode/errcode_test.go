package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"invalid_descriptor": InvalidDescriptor,
		"unsupported_mode":   UnsupportedMode,
		"illegal_transition": IllegalTransition,
		"stale_handle":       StaleHandle,
		"already_claimed":    AlreadyClaimed,
		"invalid_divider":    InvalidDivider,
		"unroutable_source":  UnroutableSource,
		"frequency_limit":    FrequencyLimit,
		"would_block":        WouldBlock,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestClasses(t *testing.T) {
	cases := []struct {
		c    Code
		want Class
	}{
		{InvalidDescriptor, ClassConfiguration},
		{IllegalTransition, ClassConfiguration},
		{AlreadyClaimed, ClassConfiguration},
		{InvalidDivider, ClassClock},
		{FrequencyLimit, ClassClock},
		{WouldBlock, ClassIO},
		{Nack, ClassIO},
		{Error, ClassNone},
	}
	for _, tc := range cases {
		if got := tc.c.Class(); got != tc.want {
			t.Fatalf("%s: class %v, want %v", tc.c, got, tc.want)
		}
	}
}

func TestEWrapping(t *testing.T) {
	cause := errors.New("bus fault")
	err := fmt.Errorf("outer: %w", Wrap(NotReady, "clock.Configure", cause))

	if Of(err) != NotReady {
		t.Fatalf("Of = %v, want %v", Of(err), NotReady)
	}
	if !errors.Is(err, NotReady) {
		t.Fatal("errors.Is should match the bare code")
	}
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should reach the cause")
	}
	if !IsClock(err) || IsConfiguration(err) {
		t.Fatal("class predicates mismatch")
	}

	e := New(InvalidDescriptor, "gpio.IntoOutput", "drive strength 7")
	if got, want := e.Error(), "gpio.IntoOutput: invalid_descriptor: drive strength 7"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if Of(nil) != OK {
		t.Fatal("Of(nil) should be OK")
	}
	if Of(errors.New("x")) != Error {
		t.Fatal("unknown errors map to Error")
	}
}
