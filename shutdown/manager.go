// Package shutdown turns SIGINT/SIGTERM into context cancellation and runs
// ordered cleanup handlers once the command has returned.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"imgresponsiver/logging"
)

// DefaultTimeout bounds how long cleanup handlers may run.
const DefaultTimeout = 10 * time.Second

// Manager coordinates a graceful stop. It composes:
//   - SignalCounter: first signal cancels, second forces exit
//   - Registry: ordered cleanup handlers
//
// Usage:
//
//	manager := shutdown.NewManager(ctx, logger)
//	manager.Register("history", 30, func(ctx context.Context) error { return store.Close() })
//	manager.Start()
//	err := runCommand(manager.Context())
//	manager.Shutdown()
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration
	exit    func(code int)

	mu       sync.Mutex
	started  bool
	shutdown bool
	received os.Signal

	ctx    context.Context
	cancel context.CancelFunc

	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets the cleanup timeout.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) { m.timeout = timeout }
}

// WithExitFunc replaces os.Exit for the forced path.
func WithExitFunc(exit func(code int)) ManagerOption {
	return func(m *Manager) { m.exit = exit }
}

// NewManager creates a Manager whose context derives from parent.
func NewManager(parent context.Context, logger *logging.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(parent)

	m := &Manager{
		logger:   logger.Named("shutdown"),
		timeout:  DefaultTimeout,
		exit:     os.Exit,
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 2),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func(sig os.Signal) {
		m.logger.Warn("Received second signal, forcing immediate exit",
			zap.String("signal", sig.String()),
		)
		_ = m.logger.Sync()
		m.exit(ExitCodeForSignal(sig))
	})

	return m
}

// Context is cancelled by the first signal.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup handler; lower priority runs first.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Start begins listening for SIGINT and SIGTERM. Calling it twice is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handle(sig)
		}
	}()
}

// handle processes one delivered signal.
func (m *Manager) handle(sig os.Signal) {
	if m.signals.Increment(sig) != 1 {
		return
	}

	m.mu.Lock()
	m.received = sig
	m.mu.Unlock()

	m.logger.Info("Received shutdown signal, finishing in-flight work",
		zap.String("signal", sig.String()),
	)
	m.cancel()
}

// Signal returns the first signal received, or nil.
func (m *Manager) Signal() os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

// Shutdown stops signal delivery, cancels the context and runs the cleanup
// handlers within the timeout. Subsequent calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	if started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}
	m.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	start := time.Now()
	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.logger.Error("Cleanup handler failed", zap.Error(err))
	}
	m.logger.Debug("Cleanup finished",
		zap.Strings("handlers", m.registry.Names()),
		zap.Duration("duration", time.Since(start)),
	)

	return errors.Join(errs...)
}

// RegisteredHandlers returns handler names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
