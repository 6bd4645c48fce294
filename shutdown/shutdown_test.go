package shutdown

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"imgresponsiver/core"
	"imgresponsiver/logging"
)

func TestSignalCounter_ForceAfterSecond(t *testing.T) {
	var forced []os.Signal
	counter := NewSignalCounter(2, func(sig os.Signal) {
		forced = append(forced, sig)
	})

	if got := counter.Increment(os.Interrupt); got != 1 {
		t.Errorf("first Increment() = %d, want 1", got)
	}
	if len(forced) != 0 {
		t.Fatal("force callback should not run on the first signal")
	}

	if got := counter.Increment(syscall.SIGTERM); got != 2 {
		t.Errorf("second Increment() = %d, want 2", got)
	}
	if len(forced) != 1 || forced[0] != syscall.SIGTERM {
		t.Errorf("forced = %v, want [SIGTERM]", forced)
	}
	if counter.Count() != 2 {
		t.Errorf("Count() = %d, want 2", counter.Count())
	}
}

func TestSignalCounter_NilCallback(t *testing.T) {
	counter := NewSignalCounter(1, nil)
	counter.Increment(os.Interrupt)
	counter.Increment(os.Interrupt)
	if counter.Count() != 2 {
		t.Errorf("Count() = %d, want 2", counter.Count())
	}
}

func TestSignalCounter_Concurrent(t *testing.T) {
	counter := NewSignalCounter(1000, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.Increment(os.Interrupt)
		}()
	}
	wg.Wait()
	if counter.Count() != 50 {
		t.Errorf("Count() = %d, want 50", counter.Count())
	}
}

func TestExitCodeForSignal(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want int
	}{
		{os.Interrupt, core.ExitCodeSIGINT},
		{syscall.SIGTERM, core.ExitCodeSIGTERM},
		{syscall.SIGHUP, core.ExitCodeError},
	}
	for _, tt := range tests {
		if got := ExitCodeForSignal(tt.sig); got != tt.want {
			t.Errorf("ExitCodeForSignal(%v) = %d, want %d", tt.sig, got, tt.want)
		}
	}
}

func TestRegistry_OrderAndErrors(t *testing.T) {
	registry := NewRegistry()
	var order []string
	record := func(name string, err error) Func {
		return func(ctx context.Context) error {
			order = append(order, name)
			return err
		}
	}

	registry.Register("temp", 40, record("temp", nil))
	registry.Register("logs", 0, record("logs", nil))
	registry.Register("history", 30, record("history", errors.New("close failed")))
	registry.Register("watcher", 30, record("watcher", nil))

	wantNames := []string{"logs", "history", "watcher", "temp"}
	names := registry.Names()
	for i, want := range wantNames {
		if names[i] != want {
			t.Fatalf("Names() = %v, want %v", names, wantNames)
		}
	}

	errs := registry.Shutdown(context.Background())
	if len(errs) != 1 {
		t.Fatalf("Shutdown() returned %d errors, want 1", len(errs))
	}
	if errs[0].Error() != "history: close failed" {
		t.Errorf("error = %q", errs[0])
	}
	if len(order) != 4 {
		t.Errorf("ran %v, want all four handlers", order)
	}

	// Closed: second shutdown and late registration do nothing.
	registry.Register("late", 1, record("late", nil))
	if errs := registry.Shutdown(context.Background()); errs != nil {
		t.Errorf("second Shutdown() = %v, want nil", errs)
	}
	if registry.Count() != 4 {
		t.Errorf("Count() = %d, want 4", registry.Count())
	}
}

func TestManager_FirstSignalCancels(t *testing.T) {
	var exitCode int
	manager := NewManager(context.Background(), logging.NewNop(),
		WithExitFunc(func(code int) { exitCode = code }),
	)

	manager.handle(syscall.SIGTERM)

	select {
	case <-manager.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after first signal")
	}
	if manager.Signal() != syscall.SIGTERM {
		t.Errorf("Signal() = %v, want SIGTERM", manager.Signal())
	}
	if exitCode != 0 {
		t.Errorf("exit called with %d after one signal", exitCode)
	}

	manager.handle(os.Interrupt)
	if exitCode != core.ExitCodeSIGINT {
		t.Errorf("exit code = %d, want %d", exitCode, core.ExitCodeSIGINT)
	}
	// The first signal stays the recorded one.
	if manager.Signal() != syscall.SIGTERM {
		t.Errorf("Signal() = %v, want SIGTERM", manager.Signal())
	}
}

func TestManager_ShutdownRunsHandlers(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	manager := NewManager(context.Background(), logging.NewFromCore(obsCore), WithTimeout(time.Second))
	manager.Start()

	var ran []string
	manager.Register("second", 20, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("cleanup context has no deadline")
		}
		ran = append(ran, "second")
		return nil
	})
	manager.Register("first", 10, func(ctx context.Context) error {
		ran = append(ran, "first")
		return errors.New("boom")
	})

	err := manager.Shutdown()
	if err == nil {
		t.Fatal("Shutdown() error = nil, want handler error")
	}
	if len(ran) != 2 || ran[0] != "first" || ran[1] != "second" {
		t.Errorf("ran = %v, want [first second]", ran)
	}
	if manager.Context().Err() == nil {
		t.Error("context should be cancelled after Shutdown")
	}
	if logs.FilterMessage("Cleanup handler failed").Len() != 1 {
		t.Error("expected one cleanup failure log entry")
	}

	if err := manager.Shutdown(); err != nil {
		t.Errorf("second Shutdown() = %v, want nil", err)
	}
}

func TestCleanupTempFiles(t *testing.T) {
	dir := t.TempDir()
	leftovers := []string{".123-240.webp.tmp-1", ".123-480.avif.tmp-99"}
	keep := []string{"123-240.webp", "notes.tmp"}
	for _, name := range append(leftovers, keep...) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if got := removeTempFiles(context.Background(), logging.NewNop(), dir); got != 2 {
		t.Errorf("removed %d files, want 2", got)
	}
	for _, name := range leftovers {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", name)
		}
	}
	for _, name := range keep {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should be kept: %v", name, err)
		}
	}

	fn := CleanupTempFiles(logging.NewNop(), filepath.Join(dir, "missing"))
	if err := fn(context.Background()); err != nil {
		t.Errorf("cleanup of missing dir error = %v", err)
	}
}

func TestCleanupTempFiles_SweepsEveryDirectory(t *testing.T) {
	root := t.TempDir()
	outputDir := filepath.Join(root, "out")
	htmlDir := filepath.Join(root, "site")
	leftovers := []string{
		filepath.Join(outputDir, ".42-240.webp.tmp-7"),
		filepath.Join(htmlDir, ".index.html.tmp-3"),
		filepath.Join(root, ".about.html.tmp-5"),
	}
	for _, path := range leftovers {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	fn := CleanupTempFiles(logging.NewNop(), outputDir, htmlDir, root, htmlDir+"/")
	if err := fn(context.Background()); err != nil {
		t.Fatalf("cleanup error = %v", err)
	}
	for _, path := range leftovers {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", path)
		}
	}
}
