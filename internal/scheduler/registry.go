package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vk/tensorsched/internal/ctxlog"
	"github.com/vk/tensorsched/internal/executor"
	"github.com/vk/tensorsched/internal/rundag"
)

// DeviceRegistry owns one DeviceQueue per device name, created lazily on
// first reference (§4.2). Device names are normalized to uppercase, the
// same normalization internal/rundag applies to op devices, so a queue is
// never split across case variants of the same device.
type DeviceRegistry struct {
	ctx       context.Context
	exec      executor.Executor
	inspector rundag.Inspector
	threads   int
	logger    *slog.Logger

	mu     sync.Mutex
	queues map[string]*DeviceQueue
}

// NewDeviceRegistry creates a registry whose device queues each run
// threadsPerQueue worker goroutines and dispatch to exec. threadsPerQueue
// is clamped to at least 1. ctx carries the logger every device queue and
// worker goroutine this registry spawns will log through; it is not a
// per-call deadline context, and is expected to outlive the registry.
func NewDeviceRegistry(ctx context.Context, exec executor.Executor, threadsPerQueue int) *DeviceRegistry {
	if threadsPerQueue < 1 {
		threadsPerQueue = 1
	}
	return &DeviceRegistry{
		ctx:       ctx,
		exec:      exec,
		inspector: rundag.DefaultInspector{},
		threads:   threadsPerQueue,
		logger:    ctxlog.FromContext(ctx),
		queues:    make(map[string]*DeviceQueue),
	}
}

// Ensure returns the queue for device, creating it (and spawning its
// worker pool) the first time it's referenced.
func (reg *DeviceRegistry) Ensure(device string) *DeviceQueue {
	device = strings.ToUpper(device)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if dq, ok := reg.queues[device]; ok {
		return dq
	}
	reg.logger.Info("Creating device queue.", "device", device, "threads", reg.threads)
	dq := newDeviceQueue(reg.ctx, device, reg.exec, reg.inspector, reg.threads)
	reg.queues[device] = dq
	return dq
}

// Submit enqueues rinfo onto every device queue its DAG touches (§6). A
// rinfo must never be submitted twice.
func (reg *DeviceRegistry) Submit(rinfo *rundag.DagRunInfo) {
	devices := rinfo.Devices()
	reg.logger.Debug("Submitting dag run.", "rinfo", rinfoID(rinfo), "devices", devices)
	for _, device := range devices {
		reg.Ensure(device).Enqueue(rinfo)
	}
}

// Snapshot returns the current queue length of every device that has been
// referenced so far, keyed by its normalized (uppercase) name. It never
// creates a queue as a side effect.
func (reg *DeviceRegistry) Snapshot() map[string]int {
	reg.mu.Lock()
	queues := make(map[string]*DeviceQueue, len(reg.queues))
	for device, dq := range reg.queues {
		queues[device] = dq
	}
	reg.mu.Unlock()

	snapshot := make(map[string]int, len(queues))
	for device, dq := range queues {
		snapshot[device] = dq.Len()
	}
	return snapshot
}

// Shutdown stops every device queue's workers and waits for them to exit
// (see DeviceQueue.Shutdown), or for ctx to be done first.
func (reg *DeviceRegistry) Shutdown(ctx context.Context) error {
	reg.mu.Lock()
	queues := make([]*DeviceQueue, 0, len(reg.queues))
	for _, dq := range reg.queues {
		queues = append(queues, dq)
	}
	reg.mu.Unlock()

	reg.logger.Info("Shutting down device registry.", "queues", len(queues))
	g, ctx := errgroup.WithContext(ctx)
	for _, dq := range queues {
		dq := dq
		g.Go(func() error { return dq.Shutdown(ctx) })
	}
	err := g.Wait()
	if err != nil {
		reg.logger.Warn("Device registry shutdown did not complete cleanly.", "error", err)
	} else {
		reg.logger.Info("Device registry shut down.")
	}
	return err
}
