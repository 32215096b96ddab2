// Package notify holds the single status message shown after a save or delete
// and clears it automatically once it expires.
package notify

import (
	"sync"
	"time"
)

type Kind int

const (
	KindNone Kind = iota
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "none"
	}
}

const DefaultTTL = 3 * time.Second

type Message struct {
	Text         string
	Kind         Kind
	ExpiresAfter time.Duration
}

func (m Message) Empty() bool {
	return m.Kind == KindNone && m.Text == ""
}

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

type Option func(*Notifier)

// WithOnChange registers a callback invoked, outside the lock, every time the
// message is set, cleared or expires.
func WithOnChange(fn func(Message)) Option {
	return func(n *Notifier) {
		n.onChange = fn
	}
}

type Notifier struct {
	mu         sync.Mutex
	ttl        time.Duration
	current    Message
	timer      timer
	generation uint64
	closed     bool
	onChange   func(Message)
	afterFunc  afterFunc
}

func New(ttl time.Duration, opts ...Option) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	n := &Notifier{
		ttl: ttl,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Success(text string) {
	n.Set(text, KindSuccess)
}

func (n *Notifier) Error(text string) {
	n.Set(text, KindError)
}

// Set replaces the current message and restarts the expiry clock.
func (n *Notifier) Set(text string, kind Kind) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.stopLocked()
	n.current = Message{Text: text, Kind: kind, ExpiresAfter: n.ttl}
	generation := n.generation
	n.timer = n.afterFunc(n.ttl, func() {
		n.expire(generation)
	})
	msg := n.current
	n.mu.Unlock()

	n.changed(msg)
}

// Clear cancels the expiry and empties the message immediately.
func (n *Notifier) Clear() {
	n.mu.Lock()
	wasEmpty := n.current.Empty()
	n.stopLocked()
	n.current = Message{}
	n.mu.Unlock()

	if !wasEmpty {
		n.changed(Message{})
	}
}

// Close clears the message and ignores every later Set.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.stopLocked()
	n.current = Message{}
	n.mu.Unlock()
}

func (n *Notifier) Current() Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Notifier) TTL() time.Duration {
	return n.ttl
}

func (n *Notifier) expire(generation uint64) {
	n.mu.Lock()
	if n.closed || generation != n.generation {
		// superseded by a later Set or Clear
		n.mu.Unlock()
		return
	}
	n.timer = nil
	n.generation++
	n.current = Message{}
	n.mu.Unlock()

	n.changed(Message{})
}

func (n *Notifier) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.generation++
}

func (n *Notifier) changed(msg Message) {
	if n.onChange != nil {
		n.onChange(msg)
	}
}
