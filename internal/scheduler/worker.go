package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/tensorsched/internal/executor"
	"github.com/vk/tensorsched/internal/queue"
	"github.com/vk/tensorsched/internal/rundag"
)

// retryDelay is how long a worker backs off before re-scanning a non-empty
// queue in which nothing was runnable — the cross-device dependency stall
// case (§4.7, §9). The C original spins on a 1ms usleep; we match it.
const retryDelay = time.Millisecond

// runnable is a single op selected to run alone.
type runnable struct {
	op    *rundag.Op
	rinfo *rundag.DagRunInfo
}

// workItem is exactly one of a single runnable op or a batch of them.
type workItem struct {
	single *runnable
	batch  []executor.BatchMember
}

func (dq *DeviceQueue) workerLoop() {
	defer dq.wg.Done()
	dq.logger.Debug("Worker started.")
	for {
		item, toSettle, ok := dq.selectWork()
		for _, rinfo := range toSettle {
			rinfo.Settle(dq.ctx)
		}
		if !ok {
			dq.logger.Debug("Worker exiting: queue closed.")
			return
		}
		if item == nil {
			continue
		}
		dq.execute(item)
	}
}

// selectWork blocks until either there's something to run, the queue is
// closed and drained, or a scheduling round needs to wait out a
// cross-device stall. toSettle lists DagRunInfos whose reference count hit
// zero during this call's scan; the caller settles them after the lock is
// released. ok is false once the queue is closed and either empty or
// holding nothing runnable — the worker's signal to exit.
func (dq *DeviceQueue) selectWork() (item *workItem, toSettle []*rundag.DagRunInfo, ok bool) {
	dq.mu.Lock()
	defer dq.mu.Unlock()

	for {
		for dq.items.Length() == 0 {
			if dq.closed {
				return nil, toSettle, false
			}
			dq.cond.Wait()
		}

		var settled []*rundag.DagRunInfo
		item, settled = dq.scanLocked()
		toSettle = append(toSettle, settled...)

		if item != nil {
			return item, toSettle, true
		}
		if len(toSettle) > 0 {
			// scanLocked found nothing runnable but did settle at least one
			// DagRunInfo (it discovered a DAG-wide error, or simply ran out
			// of pending ops, while walking this device's queue). The
			// caller must deliver those settles before this worker goes
			// back to waiting — otherwise a settle discovered via the scan
			// path, rather than the run path, sits undelivered until the
			// next unrelated wakeup, or forever.
			return nil, toSettle, true
		}
		if dq.items.Length() == 0 {
			continue // everything left was device-complete; wait for more work
		}

		if dq.closed {
			// Shutdown was requested while this queue still holds entries
			// blocked on a dependency another (now possibly already-drained)
			// device was producing. Those entries will never become ready on
			// this device queue; exit rather than retry forever.
			dq.logger.Debug("Worker exiting at shutdown with unready work still queued.", "queue_len", dq.items.Length())
			return nil, toSettle, false
		}

		// Non-empty queue, nothing runnable anywhere in it: every
		// remaining entry is either blocked on a dependency another device
		// is still producing or waiting for enough compatible entries to
		// reach its minbatchsize. Back off and retry rather than
		// busy-spinning.
		dq.mu.Unlock()
		time.Sleep(retryDelay)
		dq.mu.Lock()
	}
}

// scanLocked performs one selection walk over the queue (§4.7): it evicts
// and settles any DagRunInfo that's done with this device as it's
// encountered, skips over ops that aren't ready yet (they may become ready
// once another device finishes producing their input), and otherwise
// returns the first runnable single op or fully-assembled batch it finds.
// Must be called with dq.mu held.
func (dq *DeviceQueue) scanLocked() (item *workItem, settled []*rundag.DagRunInfo) {
	for n := dq.items.Front(); n != nil; {
		rinfo := n.Value()
		op, ready, batchable, deviceComplete, _ := dq.inspector.CurrentOpAndInfo(rinfo, dq.device)

		if deviceComplete {
			next := dq.items.Next(n)
			dq.items.Evict(n)
			if rc, just := rinfo.MarkDeviceComplete(dq.device); just && rc == 0 {
				settled = append(settled, rinfo)
			}
			n = next
			continue
		}

		if !ready {
			n = dq.items.Next(n)
			continue
		}

		if !batchable {
			dq.items.Evict(n)
			return &workItem{single: &runnable{op: op, rinfo: rinfo}}, settled
		}

		switch members, outcome := dq.assembleBatch(n, rinfo, op); outcome {
		case batchOutcomeRunSingle:
			// inbatchsize is 0 (no input bound to a batch dimension yet)
			// or already at/over batchsize: nothing to gain from batching,
			// run this op alone (§4.7).
			dq.items.Evict(n)
			return &workItem{single: &runnable{op: op, rinfo: rinfo}}, settled
		case batchOutcomeBatch:
			if len(members) == 1 {
				// No compatible sibling was found, but minbatchsize (0 or
				// otherwise) was trivially satisfied by the anchor alone:
				// still a single execution, not a batched one (§4.7,
				// invariant 5).
				return &workItem{single: &runnable{op: members[0].Op, rinfo: members[0].Rinfo}}, settled
			}
			return &workItem{batch: members}, settled
		default: // batchOutcomeAdvance
			// minbatchsize was never reached by the rest of the queue:
			// advance past this head and restart the walk at the next
			// node, discarding the partial batch we just scanned (§4.7, §9).
			n = dq.items.Next(n)
		}
	}
	return nil, settled
}

// batchOutcome distinguishes the three ways assembleBatch's scan can end.
type batchOutcome int

const (
	// batchOutcomeRunSingle means the anchor's inbatchsize was 0 or already
	// at/over batchsize: not worth batching, run it alone.
	batchOutcomeRunSingle batchOutcome = iota
	// batchOutcomeBatch means a batch meeting minbatchsize was assembled
	// and evicted; members holds it.
	batchOutcomeBatch
	// batchOutcomeAdvance means batching was attempted but minbatchsize
	// was never reached; nothing was evicted.
	batchOutcomeAdvance
)

// assembleBatch scans forward from anchor looking for other queue entries
// whose current op is batching-compatible with anchorOp, accumulating
// until batchSize is reached. It stops scanning entirely (not merely
// skips) the moment a compatible candidate would overflow batchSize,
// matching the original's single forward pass.
func (dq *DeviceQueue) assembleBatch(anchor *queue.Node[*rundag.DagRunInfo], anchorRinfo *rundag.DagRunInfo, anchorOp *rundag.Op) ([]executor.BatchMember, batchOutcome) {
	batchSize, minBatchSize, anchorSize := dq.inspector.OpBatchInfo(anchorRinfo, anchorOp)

	if anchorSize == 0 || anchorSize >= batchSize {
		return nil, batchOutcomeRunSingle
	}

	members := []executor.BatchMember{{Rinfo: anchorRinfo, Op: anchorOp}}
	nodes := []*queue.Node[*rundag.DagRunInfo]{anchor}
	total := anchorSize

	for n := dq.items.Next(anchor); n != nil; n = dq.items.Next(n) {
		candRinfo := n.Value()
		op, ready, batchable, deviceComplete, _ := dq.inspector.CurrentOpAndInfo(candRinfo, dq.device)
		if deviceComplete || !ready || !batchable {
			continue
		}

		compatible, added := dq.inspector.BatchingMatch(anchorRinfo, anchorOp, candRinfo, op)
		if !compatible {
			continue
		}
		if total+added > batchSize {
			break
		}

		members = append(members, executor.BatchMember{Rinfo: candRinfo, Op: op})
		nodes = append(nodes, n)
		total += added
		if total >= batchSize {
			break
		}
	}

	if total < minBatchSize {
		return nil, batchOutcomeAdvance
	}

	for _, n := range nodes {
		dq.items.Evict(n)
	}
	return members, batchOutcomeBatch
}

func (dq *DeviceQueue) execute(item *workItem) {
	ctx := dq.ctx
	if item.single != nil {
		dq.logger.Debug("Worker picked up op for execution.", "rinfo", rinfoID(item.single.rinfo), "op", item.single.op.Name)
		dq.runSingle(ctx, item.single)
		return
	}
	dq.logger.Debug("Worker picked up batch for execution.", "batch_size", len(item.batch), "op", item.batch[0].Op.Name)
	dq.runBatch(ctx, item.batch)
}

func (dq *DeviceQueue) runSingle(ctx context.Context, r *runnable) {
	outputs, err := dq.exec.RunSingle(ctx, dq.device, r.rinfo, r.op)
	if err != nil {
		dq.logger.Error("Op execution failed.", "op", r.op.Name, "rinfo", rinfoID(r.rinfo), "error", err)
		r.rinfo.Fail(err)
	} else if cerr := r.rinfo.CompleteOp(dq.device, r.op, outputs); cerr != nil {
		dq.logger.Error("Failed to record op completion.", "op", r.op.Name, "rinfo", rinfoID(r.rinfo), "error", cerr)
		r.rinfo.Fail(cerr)
	} else {
		dq.logger.Debug("Op execution succeeded.", "op", r.op.Name, "rinfo", rinfoID(r.rinfo))
	}
	dq.requeueOrFinish(r.rinfo)
}

// runBatch runs one combined invocation for members and folds each
// member's share of the result back into its own DagRunInfo. A batch
// failure is recorded against every member (§7: run_error ORs across the
// whole batch, not just the op that happened to trigger it).
func (dq *DeviceQueue) runBatch(ctx context.Context, members []executor.BatchMember) {
	outputs, err := dq.exec.RunBatched(ctx, dq.device, members)
	if err != nil {
		dq.logger.Error("Batch execution failed.", "batch_size", len(members), "error", err)
	} else {
		dq.logger.Debug("Batch execution succeeded.", "batch_size", len(members))
	}
	for i, m := range members {
		switch {
		case err != nil:
			m.Rinfo.Fail(err)
		default:
			if cerr := m.Rinfo.CompleteOp(dq.device, m.Op, outputs[i]); cerr != nil {
				dq.logger.Error("Failed to record batch member completion.", "op", m.Op.Name, "rinfo", rinfoID(m.Rinfo), "error", cerr)
				m.Rinfo.Fail(cerr)
			}
		}
		dq.requeueOrFinish(m.Rinfo)
	}
}

// requeueOrFinish is where the three scattered decrement-and-maybe-unblock
// moments collapse into one: whatever just happened to rinfo on this
// device, either it still has pending work here (re-queue it) or it
// doesn't (mark the device done and settle if that was the last one).
func (dq *DeviceQueue) requeueOrFinish(rinfo *rundag.DagRunInfo) {
	_, _, _, deviceComplete, _ := dq.inspector.CurrentOpAndInfo(rinfo, dq.device)
	if !deviceComplete {
		dq.Enqueue(rinfo)
		return
	}
	if rc, just := rinfo.MarkDeviceComplete(dq.device); just {
		dq.logger.Debug("Device complete for dag run.", "rinfo", rinfoID(rinfo), "remaining_devices", rc)
		if rc == 0 {
			rinfo.Settle(dq.ctx)
		}
	}
}

// rinfoID is a stable-enough-for-logging identifier for a DagRunInfo: it
// has no exported ID field, so pointer identity stands in for one, the same
// way the teacher logs a node's address when nothing friendlier exists.
func rinfoID(rinfo *rundag.DagRunInfo) string {
	return fmt.Sprintf("%p", rinfo)
}
