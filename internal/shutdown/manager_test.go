package shutdown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

type fakeComponent struct {
	name string
	rec  *recorder
}

func (c fakeComponent) Shutdown() { c.rec.add(c.name) }

type stuck struct{}

func (stuck) Shutdown() { time.Sleep(time.Second) }

func TestShutdownReverseOrderOnce(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), nil)
	m.Register("first", fakeComponent{"first", rec})
	m.Register("second", fakeComponent{"second", rec})

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []string{"second", "first"}, rec.order)
	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
	select {
	case <-m.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestShutdownTimesOutStuckComponents(t *testing.T) {
	m := NewManager(context.Background(), nil)
	m.timeout = 10 * time.Millisecond
	m.Register("stuck", stuck{})

	start := time.Now()
	m.Shutdown()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestContextFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m := NewManager(parent, nil)
	m.Listen()
	defer m.Shutdown()

	cancel()
	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
}
