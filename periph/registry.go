// Package periph is the resource ownership core: every physical resource
// has one Registry slot, and only the holder of its live Handle may touch it.
package periph

import (
	"sync"

	"maxhal/errcode"
	"maxhal/internal/logx"
	"maxhal/mode"

	"golang.org/x/exp/slices"
)

// Registry tracks which resources exist and which have been claimed.
// Claiming touches no hardware.
type Registry struct {
	mu    sync.Mutex
	slots map[ID]*slot
}

func NewRegistry(ids ...ID) *Registry {
	r := &Registry{slots: make(map[ID]*slot, len(ids))}
	r.Add(ids...)
	return r
}

// Add makes further resources known. Already known ids are left alone.
func (r *Registry) Add(ids ...ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.slots[id]; !ok {
			r.slots[id] = nil
		}
	}
}

// Claim hands out the one live handle for id, in the Unconfigured mode.
func (r *Registry) Claim(id ID) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, known := r.slots[id]
	if !known {
		return Handle{}, errcode.New(errcode.UnknownResource, "periph.Claim", id.String())
	}
	if s != nil {
		return Handle{}, errcode.New(errcode.AlreadyClaimed, "periph.Claim", id.String())
	}
	s = &slot{id: id}
	r.slots[id] = s
	logx.Debug(logx.ComponentOwn, "claim", "id", id.String())
	return Handle{s: s}, nil
}

// ClaimAll claims every id or, if any is unknown or taken, none of them.
func (r *Registry) ClaimAll(ids ...ID) ([]Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		s, known := r.slots[id]
		if !known {
			return nil, errcode.New(errcode.UnknownResource, "periph.ClaimAll", id.String())
		}
		if s != nil {
			return nil, errcode.New(errcode.AlreadyClaimed, "periph.ClaimAll", id.String())
		}
	}
	hs := make([]Handle, len(ids))
	for i, id := range ids {
		s := &slot{id: id}
		r.slots[id] = s
		hs[i] = Handle{s: s}
	}
	logx.Debug(logx.ComponentOwn, "claim", "ids", len(ids))
	return hs, nil
}

// Mode reports the current mode of a claimed resource.
func (r *Registry) Mode(id ID) (m mode.State, claimed bool) {
	r.mu.Lock()
	s := r.slots[id]
	r.mu.Unlock()
	if s == nil {
		return 0, false
	}
	return mode.State(s.word.Load() & 0xFF), true
}

// Retired reports whether a claimed resource has been retired.
func (r *Registry) Retired(id ID) bool {
	r.mu.Lock()
	s := r.slots[id]
	r.mu.Unlock()
	return s != nil && s.word.Load()&retiredBit != 0
}

// Known lists every resource, sorted.
func (r *Registry) Known() []ID { return r.list(func(*slot) bool { return true }) }

// Owned lists claimed resources, sorted.
func (r *Registry) Owned() []ID { return r.list(func(s *slot) bool { return s != nil }) }

// Free lists unclaimed resources, sorted.
func (r *Registry) Free() []ID { return r.list(func(s *slot) bool { return s == nil }) }

func (r *Registry) list(keep func(*slot) bool) []ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ID, 0, len(r.slots))
	for id, s := range r.slots {
		if keep(s) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Token is the decomposable initialization token. Each resource can be
// taken from it once.
type Token struct {
	reg *Registry
}

func NewToken(reg *Registry) Token { return Token{reg: reg} }

func (t Token) Take(id ID) (Handle, error) {
	if t.reg == nil {
		return Handle{}, errcode.New(errcode.UnknownResource, "periph.Take", "zero token")
	}
	return t.reg.Claim(id)
}

// Rest lists the resources not yet taken.
func (t Token) Rest() []ID {
	if t.reg == nil {
		return nil
	}
	return t.reg.Free()
}

func (t Token) Registry() *Registry { return t.reg }
