package ring

import "testing"

// fakeIO models partial producer progress (accept up to k bytes).
type fakeIO struct{ k int }

func (f fakeIO) write(p []byte) int { return min(len(p), f.k) }

func TestOrderAcrossWrapWithPartialProgress(t *testing.T) {
	r := New(64)
	prod := fakeIO{k: 7}

	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}

	p := src
	dst := make([]byte, N)
	off := 0
	for off < N {
		if len(p) > 0 {
			step := r.WriteFrom(p[:prod.write(p)])
			p = p[step:]
		}
		var tmp [17]byte
		n := r.ReadInto(tmp[:])
		copy(dst[off:], tmp[:n])
		off += n
	}
	for i := 0; i < N; i++ {
		if dst[i] != src[i] {
			t.Fatalf("mismatch at %d: got=%d want=%d", i, dst[i], src[i])
		}
	}
}

func TestBounds(t *testing.T) {
	r := New(8)
	if r.Len() != 0 || r.Space() != 8 {
		t.Fatalf("empty ring len=%d space=%d", r.Len(), r.Space())
	}
	if _, ok := r.Pop(); ok {
		t.Fatal("Pop on empty ring")
	}
	if n := r.WriteFrom([]byte("0123456789")); n != 8 {
		t.Fatalf("WriteFrom = %d, want 8", n)
	}
	if !r.Full() || r.Push('x') {
		t.Fatal("full ring accepted a byte")
	}
	if b, ok := r.Pop(); !ok || b != '0' {
		t.Fatalf("Pop = %q, %v", b, ok)
	}
	if !r.Push('8') {
		t.Fatal("Push after Pop")
	}
	r.Discard()
	if r.Len() != 0 || r.Space() != 8 {
		t.Fatalf("after Discard len=%d space=%d", r.Len(), r.Space())
	}
}

func TestNewRejectsOddSizes(t *testing.T) {
	for _, size := range []int{0, 1, 3, 12} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%d) did not panic", size)
				}
			}()
			New(size)
		}()
	}
}
