// Package shutdown coordinates signal-driven teardown of long-running
// components.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"canny-stream/internal/logger"
)

// DefaultTimeout bounds how long one component may take to shut down.
const DefaultTimeout = 10 * time.Second

// Shutdownable is anything that can be stopped.
type Shutdownable interface {
	Shutdown()
}

type component struct {
	name string
	impl Shutdownable
}

// Manager cancels a root context on SIGINT/SIGTERM and shuts registered
// components down in reverse registration order.
type Manager struct {
	logger     logger.Logger
	timeout    time.Duration
	mu         sync.Mutex
	components []component
	once       sync.Once
	done       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	stopSignal func()
}

// NewManager returns a manager whose Context descends from parent.
func NewManager(parent context.Context, log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		logger:  logger.OrNop(log),
		timeout: DefaultTimeout,
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a component under name.
func (m *Manager) Register(name string, c Shutdownable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, impl: c})
}

// Listen starts watching for termination signals.
func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	m.stopSignal = func() { signal.Stop(sigChan) }

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Info("ShutdownManager", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}()
}

// Shutdown cancels Context and stops every component. Only the first call
// does anything.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		close(m.done)
		m.cancel()
		if m.stopSignal != nil {
			m.stopSignal()
		}

		m.mu.Lock()
		components := append([]component(nil), m.components...)
		m.mu.Unlock()

		for i := len(components) - 1; i >= 0; i-- {
			m.stop(components[i])
		}
		m.logger.Debug("ShutdownManager", "shutdown sequence completed", map[string]interface{}{
			"components": len(components),
		})
	})
}

func (m *Manager) stop(c component) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.impl.Shutdown()
	}()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		m.logger.Warning("ShutdownManager", "component shutdown timeout", map[string]interface{}{
			"component": c.name,
			"timeout":   m.timeout.String(),
		})
	}
}

// Context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Done is closed when shutdown begins.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
