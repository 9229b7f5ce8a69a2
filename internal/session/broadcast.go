package session

import (
	"context"
	"errors"
	"sync"
)

// ringSize bounds how far a slow subscriber may fall behind before its
// oldest unread events are overwritten. Mirrors tokio::sync::broadcast's
// fixed-capacity ring: the channel itself is the buffer, not a per-receiver
// queue, so a lagging receiver observes Lagged rather than blocking the
// producer.
const ringSize = 1024

// ErrLagged is returned by Receiver.Recv when the receiver fell behind the
// producer by n events, which were dropped from the ring before the
// receiver could read them. The receiver's cursor is advanced past the
// gap; the next Recv returns the oldest event still in the ring.
type ErrLagged struct {
	N uint64
}

func (e *ErrLagged) Error() string {
	return "receiver lagged"
}

// ErrClosed is returned once the broadcaster has closed and the receiver
// has drained every event that was still in the ring at close time.
var ErrClosed = errors.New("broadcast closed")

// Broadcaster is a single-producer, multi-consumer event ring. It never
// blocks Send: a full ring overwrites its oldest slot and advances the
// shared low-water mark, so slow subscribers pay for their own lag via
// ErrLagged instead of slowing the producer.
type Broadcaster struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    [ringSize]Event
	next   uint64 // sequence number of the next Send (= count sent so far)
	closed bool
}

func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send publishes ev to all current and future subscribers. Never blocks.
func (b *Broadcaster) Send(ev Event) {
	b.mu.Lock()
	b.buf[b.next%ringSize] = ev
	b.next++
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Close marks the broadcaster closed. Receivers drain remaining buffered
// events, then observe ErrClosed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Subscribe returns a Receiver positioned to read events starting from the
// next Send after this call (it never replays history — Init delivery is
// the subscription protocol's job, see Session.Subscribe).
func (b *Broadcaster) Subscribe() *Receiver {
	b.mu.Lock()
	cursor := b.next
	b.mu.Unlock()
	return &Receiver{b: b, cursor: cursor}
}

// Receiver reads events from a Broadcaster at its own pace.
type Receiver struct {
	b      *Broadcaster
	cursor uint64

	// pending, when non-nil, is a synthesized Init event delivered by the
	// next Recv ahead of anything in the ring.
	pending *Event
}

// Recv blocks until an event is available, the receiver has lagged, the
// broadcaster closed, or ctx is done.
func (r *Receiver) Recv(ctx context.Context) (Event, error) {
	if r.pending != nil {
		ev := *r.pending
		r.pending = nil
		return ev, nil
	}

	b := r.b
	b.mu.Lock()

	for {
		oldest := uint64(0)
		if b.next > ringSize {
			oldest = b.next - ringSize
		}
		if r.cursor < oldest {
			n := oldest - r.cursor
			r.cursor = oldest
			b.mu.Unlock()
			return Event{}, &ErrLagged{N: n}
		}
		if r.cursor < b.next {
			ev := b.buf[r.cursor%ringSize]
			r.cursor++
			b.mu.Unlock()
			return ev, nil
		}
		if b.closed {
			b.mu.Unlock()
			return Event{}, ErrClosed
		}
		if ctx.Err() != nil {
			b.mu.Unlock()
			return Event{}, ctx.Err()
		}

		// Bridge sync.Cond to ctx cancellation: wait on a private
		// goroutine that wakes the cond when ctx is done.
		done := make(chan struct{})
		stop := context.AfterFunc(ctx, func() {
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
			close(done)
		})
		b.cond.Wait()
		stop()
		select {
		case <-done:
		default:
		}
	}
}
