package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeTimer struct {
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) timer {
	t := &fakeTimer{fire: f}
	c.timers = append(c.timers, t)
	return t
}

func newTestNotifier(opts ...Option) (*Notifier, *fakeClock) {
	clock := &fakeClock{}
	n := New(DefaultTTL, opts...)
	n.afterFunc = clock.afterFunc
	return n, clock
}

func TestNotifier(t *testing.T) {
	t.Run("expires", func(t *testing.T) {
		assert := assert.New(t)
		n, clock := newTestNotifier()

		n.Success("Post 1 deleted successfully.")
		assert.Equal(Message{Text: "Post 1 deleted successfully.", Kind: KindSuccess, ExpiresAfter: DefaultTTL}, n.Current())
		assert.Len(clock.timers, 1)

		clock.timers[0].fire()
		assert.True(n.Current().Empty())
	})

	t.Run("new message replaces and restarts", func(t *testing.T) {
		assert := assert.New(t)
		n, clock := newTestNotifier()

		n.Success("first")
		n.Error("second")
		assert.Len(clock.timers, 2)
		assert.True(clock.timers[0].stopped)
		assert.Equal("second", n.Current().Text)
		assert.Equal(KindError, n.Current().Kind)

		// a stale firing of the first timer must not clear the second message
		clock.timers[0].fire()
		assert.Equal("second", n.Current().Text)

		clock.timers[1].fire()
		assert.True(n.Current().Empty())
	})

	t.Run("clear cancels", func(t *testing.T) {
		assert := assert.New(t)
		n, clock := newTestNotifier()

		n.Error("boom")
		n.Clear()
		assert.True(clock.timers[0].stopped)
		assert.True(n.Current().Empty())

		clock.timers[0].fire()
		assert.True(n.Current().Empty())
	})

	t.Run("close ignores later sets", func(t *testing.T) {
		assert := assert.New(t)
		n, clock := newTestNotifier()

		n.Success("ok")
		n.Close()
		assert.True(clock.timers[0].stopped)
		n.Success("after close")
		assert.True(n.Current().Empty())
		assert.Len(clock.timers, 1)
	})

	t.Run("on change", func(t *testing.T) {
		assert := assert.New(t)
		var seen []Message
		n, clock := newTestNotifier(WithOnChange(func(m Message) {
			seen = append(seen, m)
		}))

		n.Success("ok")
		clock.timers[0].fire()
		n.Clear()

		assert.Len(seen, 2)
		assert.Equal("ok", seen[0].Text)
		assert.True(seen[1].Empty())
	})
}

func TestNotifierRealTimer(t *testing.T) {
	assert := assert.New(t)

	var mu sync.Mutex
	expired := false
	n := New(20*time.Millisecond, WithOnChange(func(m Message) {
		if m.Empty() {
			mu.Lock()
			expired = true
			mu.Unlock()
		}
	}))
	defer n.Close()

	n.Success("saved")
	assert.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return expired
	}, time.Second, 5*time.Millisecond)
	assert.True(n.Current().Empty())
}
