package shutdown

import (
	"os"
	"sync"
	"syscall"

	"imgresponsiver/core"
)

// SignalCounter tracks repeated shutdown signals and triggers forced shutdown.
//
// This is a molecule that composes counting with a callback to handle the
// pattern "first signal = graceful, second = force".
//
// Usage:
//
//	counter := NewSignalCounter(2, func(sig os.Signal) {
//	    os.Exit(ExitCodeForSignal(sig))
//	})
//	for sig := range sigChan {
//	    if counter.Increment(sig) == 1 {
//	        cancel()
//	    }
//	}
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func(os.Signal)
}

// NewSignalCounter creates a SignalCounter that calls onForce (may be nil)
// for every signal at or past the forceAfter-th one.
func NewSignalCounter(forceAfter int, onForce func(os.Signal)) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Increment records sig and returns the new count.
//
// The callback runs while holding the lock, so it should be fast or should
// exit the process.
func (s *SignalCounter) Increment(sig os.Signal) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce(sig)
	}
	return s.count
}

// Count returns the current signal count.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// ExitCodeForSignal maps a termination signal to its conventional exit code.
// This is a pure function with no side effects.
func ExitCodeForSignal(sig os.Signal) int {
	switch sig {
	case os.Interrupt:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeError
	}
}
