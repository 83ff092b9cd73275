package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"
)

// ProcessManager owns the long-running goroutines (mission worker, draw
// session cleanup) with a single shutdown point.
type ProcessManager struct {
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	processes map[string]context.CancelFunc
}

func NewProcessManager() *ProcessManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessManager{
		ctx:       ctx,
		cancel:    cancel,
		processes: make(map[string]context.CancelFunc),
	}
}

// Start registers and launches a named background process. Starting a
// name that is already running stops the previous instance first.
func (pm *ProcessManager) Start(name string, fn func(ctx context.Context)) {
	pm.mu.Lock()
	if cancel, exists := pm.processes[name]; exists {
		slog.Warn("Process already running, replacing", slog.String("process", name))
		cancel()
	}
	processCtx, processCancel := context.WithCancel(pm.ctx)
	pm.processes[name] = processCancel
	pm.mu.Unlock()

	pm.wg.Add(1)
	go func() {
		defer pm.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Background process panic",
					slog.String("process", name),
					slog.Any("panic", r))
			}
		}()

		slog.Info("Starting background process", slog.String("process", name))
		fn(processCtx)
		slog.Info("Background process ended", slog.String("process", name))
	}()
}

// Stop cancels a single named process.
func (pm *ProcessManager) Stop(name string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if cancel, exists := pm.processes[name]; exists {
		cancel()
		delete(pm.processes, name)
	}
}

// Shutdown cancels everything and waits up to the timeout for the
// goroutines to finish.
func (pm *ProcessManager) Shutdown(timeout time.Duration) error {
	pm.cancel()

	done := make(chan struct{})
	go func() {
		pm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("background processes did not stop within %s", timeout)
	}
}
