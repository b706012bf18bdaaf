package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vk/tensorsched/internal/ctxlog"
	"github.com/vk/tensorsched/internal/executor"
	"github.com/vk/tensorsched/internal/queue"
	"github.com/vk/tensorsched/internal/rundag"
)

// DeviceQueue is the run queue for one device: an unsynchronized FIFO of
// DagRunInfos with pending work on this device (§4.3), guarded by a mutex
// and serviced by a fixed pool of worker goroutines. Only one entry per
// DagRunInfo is ever queued at a time.
type DeviceQueue struct {
	ctx       context.Context
	device    string
	exec      executor.Executor
	inspector rundag.Inspector
	logger    *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	items  *queue.Queue[*rundag.DagRunInfo]
	closed bool

	wg sync.WaitGroup
}

func newDeviceQueue(ctx context.Context, device string, exec executor.Executor, inspector rundag.Inspector, threads int) *DeviceQueue {
	dq := &DeviceQueue{
		ctx:       ctx,
		device:    device,
		exec:      exec,
		inspector: inspector,
		logger:    ctxlog.FromContext(ctx).With("device", device),
		items:     queue.New[*rundag.DagRunInfo](),
	}
	dq.cond = sync.NewCond(&dq.mu)
	dq.logger.Debug("Starting device queue worker pool.", "threads", threads)
	for i := 0; i < threads; i++ {
		dq.wg.Add(1)
		go dq.workerLoop()
	}
	return dq
}

// Enqueue adds rinfo to the tail of the queue unless it's already present.
// A rinfo already queued here has nothing new to offer until a worker
// re-evaluates it, so a duplicate Enqueue is a silent no-op rather than an
// error — callers are not expected to track queue membership themselves.
func (dq *DeviceQueue) Enqueue(rinfo *rundag.DagRunInfo) {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	if dq.closed {
		dq.logger.Debug("Enqueue after shutdown ignored.", "rinfo", rinfoID(rinfo))
		return
	}
	for n := dq.items.Front(); n != nil; n = dq.items.Next(n) {
		if n.Value() == rinfo {
			return
		}
	}
	dq.items.PushBack(rinfo)
	dq.logger.Debug("Enqueued dag run.", "rinfo", rinfoID(rinfo), "queue_len", dq.items.Length())
	dq.cond.Signal()
}

// Len returns the number of DagRunInfos currently queued for this device.
func (dq *DeviceQueue) Len() int {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	return dq.items.Length()
}

// Shutdown stops accepting new work and waits for every worker goroutine to
// exit, or for ctx to be done first. Workers keep running whatever is
// runnable and exit once the queue is empty or holds only entries that
// cannot run; such entries are left in the queue.
func (dq *DeviceQueue) Shutdown(ctx context.Context) error {
	dq.logger.Info("Shutting down device queue.")
	dq.mu.Lock()
	dq.closed = true
	dq.cond.Broadcast()
	dq.mu.Unlock()

	done := make(chan struct{})
	go func() {
		dq.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		dq.logger.Info("Device queue workers exited.")
		return nil
	case <-ctx.Done():
		dq.logger.Warn("Device queue shutdown deadline exceeded before workers exited.")
		return ctx.Err()
	}
}
