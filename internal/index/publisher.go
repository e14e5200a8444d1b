package index

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Publisher owns the pointer to the current snapshot. Reads are lock-free;
// publishing is serialized.
type Publisher struct {
	current atomic.Pointer[Snapshot]

	mu          sync.Mutex // serializes Publish and protects subscribers
	generation  uint64
	subscribers map[int]chan uint64
	nextSubID   int
}

// NewPublisher creates a publisher serving initial, or an empty snapshot
// when initial is nil.
func NewPublisher(initial *Snapshot) *Publisher {
	p := &Publisher{subscribers: make(map[int]chan uint64)}
	if initial == nil {
		initial = EmptySnapshot()
	}
	if _, err := p.Publish(initial); err != nil {
		// A fresh publisher cannot hold a newer snapshot.
		panic(err)
	}
	return p
}

// Current returns the published snapshot. It never returns nil.
func (p *Publisher) Current() *Snapshot {
	return p.current.Load()
}

// Generation returns the generation of the current snapshot.
func (p *Publisher) Generation() uint64 {
	return p.current.Load().Generation()
}

// Publish atomically replaces the current snapshot and returns its new
// generation. Snapshots built from an older store revision than the current
// one are refused.
func (p *Publisher) Publish(s *Snapshot) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.generation != 0 {
		return 0, fmt.Errorf("%w: %s has generation %d", ErrAlreadyPublished, s.ID(), s.generation)
	}
	if cur := p.current.Load(); cur != nil && s.Revision() < cur.Revision() {
		return 0, fmt.Errorf("%w: revision %d is older than %d", ErrStaleSnapshot, s.Revision(), cur.Revision())
	}

	p.generation++
	s.generation = p.generation
	p.current.Store(s)

	for _, ch := range p.subscribers {
		// Keep only the latest generation for slow subscribers.
		select {
		case <-ch:
		default:
		}
		ch <- p.generation
	}
	return p.generation, nil
}

// Subscribe returns a channel receiving the generation of every publish.
// Slow receivers only see the latest generation. Call cancel to unsubscribe.
func (p *Publisher) Subscribe() (<-chan uint64, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	ch := make(chan uint64, 1)
	p.subscribers[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
	return ch, cancel
}
