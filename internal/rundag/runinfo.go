package rundag

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// normalizeDevice is the single point of truth for device-name comparison:
// devices are matched case-insensitively everywhere in the scheduler, so
// "gpu:0" and "GPU:0" always refer to the same queue and the same slice of
// a DagRunInfo's pending ops.
func normalizeDevice(device string) string {
	return strings.ToUpper(device)
}

// ErrOpNotReady is returned by CompleteOp when called for an op other than
// the device's current pending op — a caller bug, since the worker loop
// only ever runs the op CurrentOpAndInfo just handed it.
var ErrOpNotReady = fmt.Errorf("rundag: op is not the device's current pending op")

// DagRunInfo is the shared state for one client submission: the DAG, the
// symbolic-key context accumulated as ops complete, the dag-wide error
// flag, the dag-wide reference count, and the handle to the blocked
// client. All of it is guarded by a single mutex.
//
// A DagRunInfo is referenced from every per-device queue one of its ops
// touches; it is disposed exactly once, by whichever caller observes its
// reference count reach zero.
type DagRunInfo struct {
	// Dag is immutable for the lifetime of the DagRunInfo.
	Dag *Dag
	// Client may be nil if the caller already detached.
	Client Client
	// OnDispose is invoked in place of Client.Unblock when Client is nil,
	// so the last owner can still free rinfo. May be nil.
	OnDispose func(*DagRunInfo)

	mu       sync.Mutex
	context  map[string]Value
	err      error
	refCount int

	deviceOps map[string][]*Op
	cursor    map[string]int
	settled   map[string]bool
	completed int

	settleOnce sync.Once
}

// New creates a DagRunInfo for dag, seeded with the literal inputs the
// client supplied. client may be nil for a detached caller.
func New(dag *Dag, inputs map[string]Value, client Client) *DagRunInfo {
	deviceOps := make(map[string][]*Op)
	for _, op := range dag.Ops {
		deviceOps[normalizeDevice(op.Device)] = append(deviceOps[normalizeDevice(op.Device)], op)
	}

	ctx := make(map[string]Value, len(inputs))
	for k, v := range inputs {
		ctx[k] = v
	}

	return &DagRunInfo{
		Dag:       dag,
		Client:    client,
		context:   ctx,
		refCount:  len(deviceOps),
		deviceOps: deviceOps,
		cursor:    make(map[string]int, len(deviceOps)),
		settled:   make(map[string]bool, len(deviceOps)),
	}
}

// Devices returns the distinct devices touched by this DAG.
func (r *DagRunInfo) Devices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	devices := make([]string, 0, len(r.deviceOps))
	for d := range r.deviceOps {
		devices = append(devices, d)
	}
	return devices
}

// RefCount returns the number of devices that still have unfinished work
// for this DAG.
func (r *DagRunInfo) RefCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refCount
}

// Err returns the first execution failure recorded for this DAG, if any.
func (r *DagRunInfo) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Fail records err as the DAG's failure, if one isn't already recorded.
// Only the first failure across the whole DAG (and across a batched group)
// is kept.
func (r *DagRunInfo) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// Result returns the value bound to key in the DAG's context, if any.
func (r *DagRunInfo) Result(key string) (Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.context[key]
	return v, ok
}

func (r *DagRunInfo) currentOpLocked(device string) (op *Op, idx int, ok bool) {
	device = normalizeDevice(device)
	ops := r.deviceOps[device]
	idx = r.cursor[device]
	if idx >= len(ops) {
		return nil, idx, false
	}
	return ops[idx], idx, true
}

func (r *DagRunInfo) readyLocked(op *Op) bool {
	for _, in := range op.Inputs {
		if _, ok := r.context[in]; !ok {
			return false
		}
	}
	return true
}

// CurrentOpAndInfo implements the DagInspector query of the same name
// (§4.4): the earliest pending op for device, whether it's ready, whether
// it's batchable, whether device has no more pending ops, and whether the
// whole DAG has no more pending ops anywhere.
//
// Once a DAG-wide error has been recorded, every device reports
// deviceComplete so the scheduler abandons remaining work for this DAG on
// every queue (§7).
func (r *DagRunInfo) CurrentOpAndInfo(device string) (op *Op, ready, batchable, deviceComplete, dagComplete bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, false, false, true, false
	}

	op, _, ok := r.currentOpLocked(device)
	if !ok {
		return nil, false, false, true, r.completed == len(r.Dag.Ops)
	}

	ready = r.readyLocked(op)
	batchable = op.Batchable()
	return op, ready, batchable, false, false
}

// OpBatchInfo implements op_batch_info (§4.4): batchSize/minBatchSize come
// from the op itself; inBatchSize is the size of the op's first input
// along the batching (0th) dimension, 0 if that input isn't in context yet
// or has no batch dimension.
func (r *DagRunInfo) OpBatchInfo(op *Op) (batchSize, minBatchSize, inBatchSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batchSize, minBatchSize = op.BatchSize, op.MinBatchSize
	if len(op.Inputs) == 0 {
		return batchSize, minBatchSize, 0
	}
	v, ok := r.context[op.Inputs[0]]
	if !ok {
		return batchSize, minBatchSize, 0
	}
	return batchSize, minBatchSize, v.BatchDimSize()
}

// BatchingMatch implements batching_match (§4.4): opB is a candidate to
// join a batch started by opA iff both invoke the same named model and
// their first inputs agree on every dimension but the 0th. addedBatchSize
// is opB's contribution to the running batch total.
func BatchingMatch(rinfoA *DagRunInfo, opA *Op, rinfoB *DagRunInfo, opB *Op) (compatible bool, addedBatchSize int) {
	if opA.Kind != ModelRun || opB.Kind != ModelRun || opA.Name != opB.Name {
		return false, 0
	}
	if len(opA.Inputs) != len(opB.Inputs) || len(opA.Inputs) == 0 {
		return false, 0
	}

	valA, okA := rinfoA.Result(opA.Inputs[0])
	valB, okB := rinfoB.Result(opB.Inputs[0])
	if !okA || !okB {
		return false, 0
	}
	if !NonBatchDimsEqual(valA, valB) {
		return false, 0
	}

	for i := 1; i < len(opA.Inputs); i++ {
		va, oka := rinfoA.Result(opA.Inputs[i])
		vb, okb := rinfoB.Result(opB.Inputs[i])
		if oka != okb {
			return false, 0
		}
		if oka && !NonBatchDimsEqual(va, vb) {
			return false, 0
		}
	}

	return true, valB.BatchDimSize()
}

// CompleteOp records op's successful execution on device: its outputs are
// merged into the shared context and the device's cursor advances past it.
// op must be the value most recently returned by CurrentOpAndInfo for this
// device — anything else is a caller bug.
func (r *DagRunInfo) CompleteOp(device string, op *Op, outputs map[string]Value) error {
	device = normalizeDevice(device)
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, idx, ok := r.currentOpLocked(device)
	if !ok || cur != op {
		return ErrOpNotReady
	}
	for k, v := range outputs {
		r.context[k] = v
	}
	r.cursor[device] = idx + 1
	r.completed++
	return nil
}

// MarkDeviceComplete records that device has no more work for this DAG —
// because it genuinely ran out of pending ops, because the DAG as a whole
// is complete, or because a failure means remaining ops are abandoned.
// It is safe to call more than once for the same device; only the first
// call decrements the reference count. It returns the resulting reference
// count and whether this call was the one that decremented it.
func (r *DagRunInfo) MarkDeviceComplete(device string) (refCount int, justCompleted bool) {
	device = normalizeDevice(device)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled[device] {
		return r.refCount, false
	}
	r.settled[device] = true
	r.refCount--
	return r.refCount, true
}

// Settle delivers the terminal unblock (or, for a detached client,
// disposal) exactly once. Callers invoke it whenever MarkDeviceComplete
// reports the reference count has reached zero; invoking it more than
// once, or concurrently, is safe — only the first call has any effect.
func (r *DagRunInfo) Settle(ctx context.Context) {
	r.settleOnce.Do(func() {
		if r.Client != nil {
			r.Client.Unblock(ctx, r)
			return
		}
		if r.OnDispose != nil {
			r.OnDispose(r)
		}
	})
}
