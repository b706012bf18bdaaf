package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tensorsched/internal/rundag"
)

func modelOp(batchSize, minBatchSize int) *rundag.Op {
	return &rundag.Op{Device: "GPU:0", Kind: rundag.ModelRun, Name: "M", Inputs: []string{"x"}, Outputs: []string{"y"}, BatchSize: batchSize, MinBatchSize: minBatchSize}
}

func newTestDeviceQueue() *DeviceQueue {
	return newDeviceQueue(testContext(), "GPU:0", nil, rundag.DefaultInspector{}, 0)
}

func TestScanLockedSkipsNotReadyAndRunsNextReady(t *testing.T) {
	dq := newTestDeviceQueue()

	blocked := rundag.New(&rundag.Dag{Ops: []*rundag.Op{
		{Device: "GPU:0", Kind: rundag.TensorOp, Inputs: []string{"not-bound"}, Outputs: []string{"z"}},
	}}, nil, nil)
	ready := rundag.New(&rundag.Dag{Ops: []*rundag.Op{
		{Device: "GPU:0", Kind: rundag.TensorOp, Outputs: []string{"z"}},
	}}, nil, nil)

	dq.mu.Lock()
	dq.items.PushBack(blocked)
	dq.items.PushBack(ready)
	item, settled := dq.scanLocked()
	length := dq.items.Length()
	dq.mu.Unlock()

	require.Empty(t, settled)
	require.NotNil(t, item)
	require.NotNil(t, item.single)
	assert.Same(t, ready, item.single.rinfo, "the not-ready head is skipped, not evicted")
	assert.Equal(t, 1, length, "only the runnable entry was evicted; the blocked one stays queued")
}

func TestScanLockedEvictsAndSettlesDeviceComplete(t *testing.T) {
	dq := newTestDeviceQueue()

	// A one-op dag whose op has already run has nothing left pending on
	// this device.
	dag := &rundag.Dag{Ops: []*rundag.Op{{Device: "GPU:0", Outputs: []string{"y"}}}}
	rinfo := rundag.New(dag, nil, nil)
	require.NoError(t, rinfo.CompleteOp("GPU:0", dag.Ops[0], map[string]rundag.Value{"y": rundag.ValueOf(cty.True)}))

	dq.mu.Lock()
	dq.items.PushBack(rinfo)
	item, settled := dq.scanLocked()
	length := dq.items.Length()
	dq.mu.Unlock()

	assert.Nil(t, item)
	require.Len(t, settled, 1)
	assert.Same(t, rinfo, settled[0])
	assert.Equal(t, 0, length)
}

func TestScanLockedRunsSingleWhenInBatchSizeAtOrOverBatchSize(t *testing.T) {
	dq := newTestDeviceQueue()

	dag := &rundag.Dag{Ops: []*rundag.Op{modelOp(4, 0)}}
	rinfo := rundag.New(dag, map[string]rundag.Value{"x": rundag.ValueOf(rowOf(4))}, nil) // inbatchsize == batchsize

	dq.mu.Lock()
	dq.items.PushBack(rinfo)
	item, _ := dq.scanLocked()
	dq.mu.Unlock()

	require.NotNil(t, item)
	require.NotNil(t, item.single, "inbatchsize >= batchsize means run alone, not batched")
	assert.Nil(t, item.batch)
}

func TestScanLockedStopsScanningOnFirstOverflow(t *testing.T) {
	dq := newTestDeviceQueue()

	r1 := rundag.New(&rundag.Dag{Ops: []*rundag.Op{modelOp(8, 0)}}, map[string]rundag.Value{"x": rundag.ValueOf(rowOf(2))}, nil)
	overflow := rundag.New(&rundag.Dag{Ops: []*rundag.Op{modelOp(8, 0)}}, map[string]rundag.Value{"x": rundag.ValueOf(rowOf(7))}, nil) // 2+7=9 > 8: overflow, scan stops here
	wouldFit := rundag.New(&rundag.Dag{Ops: []*rundag.Op{modelOp(8, 0)}}, map[string]rundag.Value{"x": rundag.ValueOf(rowOf(1))}, nil) // would fit (2+1=3) but is never reached

	dq.mu.Lock()
	dq.items.PushBack(r1)
	dq.items.PushBack(overflow)
	dq.items.PushBack(wouldFit)
	item, _ := dq.scanLocked()
	remaining := dq.items.Length()
	dq.mu.Unlock()

	require.NotNil(t, item)
	require.NotNil(t, item.single, "r1 and overflow never combine, and nothing after the break point is consulted")
	assert.Same(t, r1, item.single.rinfo)
	assert.Equal(t, 2, remaining, "overflow and wouldFit both remain queued; the scan broke before reaching wouldFit")
}

func TestScanLockedAdvancesHeadWhenMinBatchSizeUnmet(t *testing.T) {
	dq := newTestDeviceQueue()

	short := rundag.New(&rundag.Dag{Ops: []*rundag.Op{modelOp(8, 4)}}, map[string]rundag.Value{"x": rundag.ValueOf(rowOf(2))}, nil)
	other := rundag.New(&rundag.Dag{Ops: []*rundag.Op{{Device: "GPU:0", Kind: rundag.TensorOp, Outputs: []string{"z"}}}}, nil, nil)

	dq.mu.Lock()
	dq.items.PushBack(short)
	dq.items.PushBack(other)
	item, _ := dq.scanLocked()
	dq.mu.Unlock()

	require.NotNil(t, item)
	require.NotNil(t, item.single)
	assert.Same(t, other, item.single.rinfo, "short can't reach minbatchsize alone; the walk advances to the next head")
}

// TestShutdownExitsWithPermanentlyBlockedEntry covers a queue that, at
// shutdown time, holds an entry that will never become ready on this
// device (its input's producing device has already drained without
// supplying it, or never will). Without re-checking dq.closed in the
// nothing-runnable retry branch, a worker would sleep-and-rescan that entry
// forever and Shutdown would hang until its context's deadline.
func TestShutdownExitsWithPermanentlyBlockedEntry(t *testing.T) {
	dq := newDeviceQueue(testContext(), "GPU:0", nil, rundag.DefaultInspector{}, 1)

	stuck := rundag.New(&rundag.Dag{Ops: []*rundag.Op{
		{Device: "GPU:0", Kind: rundag.TensorOp, Inputs: []string{"never-produced"}, Outputs: []string{"z"}},
	}}, nil, nil)
	dq.Enqueue(stuck)

	// Give the worker a chance to pick the queue up and start retry-sleeping
	// on the unready entry before shutdown is requested.
	time.Sleep(5 * retryDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := dq.Shutdown(ctx)
	elapsed := time.Since(start)

	require.NoError(t, err, "a permanently-blocked entry must not prevent a clean shutdown")
	assert.Less(t, elapsed, time.Second, "the worker should exit promptly on the closed flag, not wait out ctx's deadline")
}
