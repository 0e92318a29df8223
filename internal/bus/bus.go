// Package bus implements the Spectrum Bus (SB): a single-producer,
// multi-consumer hand-off of immutable frames with a drop-oldest-waiting
// backpressure policy (spec.md §4.4), modeled on the subscriber fan-out in
// the teacher's SpectrumManager.distributeSpectrum.
package bus

import (
	"sync"

	"github.com/cwsl/hackrf-sweepd/internal/frame"
)

// Bus fans a single producer's frames out to any number of consumers. Each
// consumer gets its own single-slot mailbox; Publish never blocks.
type Bus struct {
	mu          sync.Mutex
	subscribers map[chan frame.Frame]struct{}
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[chan frame.Frame]struct{})}
}

// Subscribe registers a new consumer and returns its mailbox. The caller
// must range over the channel (or select on it) from a single goroutine;
// call Unsubscribe when done.
func (b *Bus) Subscribe() chan frame.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan frame.Frame, 1)
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a consumer's mailbox.
func (b *Bus) Unsubscribe(ch chan frame.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// Publish delivers f to every current subscriber. If a subscriber hasn't
// drained its previous frame yet, that pending frame is replaced (dropped)
// rather than queued, and the producer never blocks.
func (b *Bus) Publish(f frame.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- f:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- f:
			default:
			}
		}
	}
}

// Len reports the current subscriber count.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
