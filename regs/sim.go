package regs

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Mem is the raw storage behind a Sim, handed to hooks. Hooks run with the
// Sim lock held and must use Mem rather than the Sim itself.
type Mem interface {
	Load(addr uint32) uint32
	Store(addr, v uint32)
}

// WriteHook replaces the default store for one address.
type WriteHook func(m Mem, addr, v uint32)

// ReadHook computes the value returned for one address.
type ReadHook func(m Mem, addr uint32) uint32

// Access is one recorded bus write.
type Access struct {
	Addr, Value uint32
}

type region struct {
	base, size, fill uint32
}

// Sim is an in-memory Bus. Unwritten registers read as zero unless they lie
// in a region registered with Fill. Hooks model registers whose behaviour is
// more than storage (write-1-to-set aliases, ready flags, FIFOs).
type Sim struct {
	mu      sync.Mutex
	mem     map[uint32]uint32
	regions []region
	onWrite map[uint32]WriteHook
	onRead  map[uint32]ReadHook
	log     []Access
}

var _ Bus = (*Sim)(nil)

func NewSim() *Sim {
	return &Sim{
		mem:     make(map[uint32]uint32),
		onWrite: make(map[uint32]WriteHook),
		onRead:  make(map[uint32]ReadHook),
	}
}

// simMem is the lock-free view given to hooks.
type simMem struct{ s *Sim }

func (m simMem) Load(addr uint32) uint32 { return m.s.load(addr) }
func (m simMem) Store(addr, v uint32)    { m.s.mem[addr] = v }

func (s *Sim) load(addr uint32) uint32 {
	if v, ok := s.mem[addr]; ok {
		return v
	}
	for _, r := range s.regions {
		if addr >= r.base && addr-r.base < r.size {
			return r.fill
		}
	}
	return 0
}

// Fill makes every word in [base, base+size) read as v until written.
func (s *Sim) Fill(base, size, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = append(s.regions, region{base: base, size: size, fill: v})
}

// OnWrite installs a write hook for addr.
func (s *Sim) OnWrite(addr uint32, h WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite[addr] = h
}

// OnRead installs a read hook for addr.
func (s *Sim) OnRead(addr uint32, h ReadHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRead[addr] = h
}

func (s *Sim) Read(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.onRead[addr]; ok {
		return h(simMem{s}, addr)
	}
	return s.load(addr)
}

func (s *Sim) Write(addr, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, Access{Addr: addr, Value: v})
	if h, ok := s.onWrite[addr]; ok {
		h(simMem{s}, addr, v)
		return
	}
	s.mem[addr] = v
}

// Peek reads storage directly, bypassing hooks.
func (s *Sim) Peek(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(addr)
}

// Poke writes storage directly, bypassing hooks and the write log.
func (s *Sim) Poke(addr, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem[addr] = v
}

// Writes returns a copy of the bus write log.
func (s *Sim) Writes() []Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.log)
}

// WriteCount returns the number of bus writes so far.
func (s *Sim) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

// Snapshot copies the stored register values.
func (s *Sim) Snapshot() map[uint32]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint32]uint32, len(s.mem))
	for k, v := range s.mem {
		out[k] = v
	}
	return out
}
