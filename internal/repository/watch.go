package repository

import (
	"context"
	"sync"
)

// Kind identifies an entity table for change notifications.
type Kind string

const (
	KindDonation    Kind = "donations"
	KindUser        Kind = "users"
	KindTransaction Kind = "mpesa_transactions"
)

// Notifier fans out change signals to subscribers. A subscriber gets a
// buffered signal channel; a burst of writes may collapse into a single
// signal, but every signal is sent after its write committed, so a
// re-query on receipt observes all states in commit order.
type Notifier struct {
	mu   sync.Mutex
	subs map[Kind]map[int]chan struct{}
	next int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[Kind]map[int]chan struct{})}
}

// Subscribe registers interest in writes to the given kind. The returned
// cancel func unregisters the subscriber and closes the channel; it is safe
// to call more than once.
func (n *Notifier) Subscribe(kind Kind) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs[kind] == nil {
		n.subs[kind] = make(map[int]chan struct{})
	}
	id := n.next
	n.next++

	ch := make(chan struct{}, 1)
	n.subs[kind][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs[kind], id)
			close(ch)
		})
	}
	return ch, cancel
}

// Notify signals all subscribers of kind. Never blocks: a subscriber with a
// pending signal keeps the single pending signal.
func (n *Notifier) Notify(kind Kind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[kind] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch runs query once immediately and again after every change signal,
// sending each snapshot on the returned channel. It stops when ctx is done
// and closes the output channel.
func Watch[T any](ctx context.Context, n *Notifier, kind Kind, query func(context.Context) ([]T, error)) <-chan []T {
	out := make(chan []T, 1)
	signals, cancel := n.Subscribe(kind)

	go func() {
		defer close(out)
		defer cancel()

		emit := func() bool {
			rows, err := query(ctx)
			if err != nil {
				return ctx.Err() == nil
			}
			select {
			case out <- rows:
			case <-ctx.Done():
				return false
			}
			return true
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}
