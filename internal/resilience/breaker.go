// Package resilience guards calls to the planning service.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned instead of calling through while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type phase uint8

const (
	closed phase = iota
	open
	probing
)

var phaseNames = [...]string{closed: "closed", open: "open", probing: "half-open"}

func (p phase) String() string { return phaseNames[p] }

// Breaker stops calling a dependency after a run of consecutive failures.
// Once the cooldown has passed a single probe call is let through; its
// outcome decides whether the circuit closes again or stays open for
// another cooldown. Calls are never retried here.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	counts    func(error) bool
	clock     func() time.Time

	mu       sync.Mutex
	phase    phase
	streak   int
	reopenAt time.Time
	inFlight bool
}

// NewBreaker returns a closed breaker that opens after threshold consecutive
// failures and waits cooldown before probing. A threshold below 1 is treated as 1.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		counts:    func(err error) bool { return err != nil },
		clock:     time.Now,
	}
}

// CountIf narrows which errors open the circuit. Errors rejected by fn are
// still returned to the caller but reset the failure streak, since the
// dependency did answer.
func (b *Breaker) CountIf(fn func(error) bool) *Breaker {
	b.mu.Lock()
	b.counts = func(err error) bool { return err != nil && fn(err) }
	b.mu.Unlock()
	return b
}

// Execute calls fn unless the circuit is open, in which case it returns
// ErrCircuitOpen without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	probe, ok := b.admit()
	if !ok {
		return ErrCircuitOpen
	}
	err := fn()
	b.record(probe, err)
	return err
}

// State reports "closed", "open" or "half-open".
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.phase == open && !b.clock().Before(b.reopenAt) {
		return probing.String()
	}
	return b.phase.String()
}

func (b *Breaker) admit() (probe, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case closed:
		return false, true
	case open:
		if b.clock().Before(b.reopenAt) {
			return false, false
		}
		b.moveTo(probing)
	}
	if b.inFlight {
		return false, false
	}
	b.inFlight = true
	return true, true
}

func (b *Breaker) record(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.inFlight = false
	}
	if !b.counts(err) {
		b.streak = 0
		if b.phase != closed {
			b.moveTo(closed)
		}
		return
	}

	b.streak++
	if probe || b.streak >= b.threshold {
		b.reopenAt = b.clock().Add(b.cooldown)
		if b.phase != open {
			b.moveTo(open)
		}
	}
}

// moveTo must be called with b.mu held.
func (b *Breaker) moveTo(next phase) {
	slog.Warn("circuit breaker state change",
		"breaker", b.name,
		"from", b.phase.String(),
		"to", next.String(),
		"failures", b.streak,
	)
	b.phase = next
}
