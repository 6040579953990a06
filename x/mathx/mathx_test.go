package mathx

import "testing"

func TestClampBetween(t *testing.T) {
	if got := Clamp(5, 10, 1); got != 5 {
		t.Fatalf("Clamp swapped bounds: got %d", got)
	}
	if got := Clamp(uint32(0), 1, 8); got != 1 {
		t.Fatalf("Clamp low: got %d", got)
	}
	if got := Clamp(99, 1, 8); got != 8 {
		t.Fatalf("Clamp high: got %d", got)
	}
	if !Between(3, 4, 1) || Between(0, 1, 4) {
		t.Fatal("Between mismatch")
	}
	if Min(3, 2) != 2 || Max(3, 2) != 3 {
		t.Fatal("Min/Max mismatch")
	}
}

func TestDivisions(t *testing.T) {
	cases := []struct {
		a, b        uint32
		ceil, round uint32
		quot        uint32
		exact       bool
	}{
		{10, 3, 4, 3, 3, false},
		{12, 4, 3, 3, 3, true},
		{7_372_800, 115_200, 64, 64, 64, true},
		{1, 0, 0, 0, 0, false},
	}
	for _, c := range cases {
		if got := CeilDiv(c.a, c.b); got != c.ceil {
			t.Fatalf("CeilDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.ceil)
		}
		if got := RoundDiv(c.a, c.b); got != c.round {
			t.Fatalf("RoundDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.round)
		}
		q, ok := ExactDiv(c.a, c.b)
		if q != c.quot || ok != c.exact {
			t.Fatalf("ExactDiv(%d,%d) = %d,%v want %d,%v", c.a, c.b, q, ok, c.quot, c.exact)
		}
	}
}

func TestPow2(t *testing.T) {
	for _, v := range []uint32{1, 2, 4, 128, 4096} {
		if !IsPow2(v) {
			t.Fatalf("IsPow2(%d) = false", v)
		}
		if Pow2[uint32](Log2(v)) != v {
			t.Fatalf("Pow2(Log2(%d)) mismatch", v)
		}
	}
	for _, v := range []uint32{0, 3, 6, 100} {
		if IsPow2(v) {
			t.Fatalf("IsPow2(%d) = true", v)
		}
	}
	if Log2(uint32(0)) != 0 || Log2(uint32(5)) != 2 {
		t.Fatal("Log2 mismatch")
	}
}
