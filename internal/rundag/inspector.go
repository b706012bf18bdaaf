package rundag

// Inspector is the read-only query surface the scheduler's worker loop uses
// to decide what to run next, without reaching into DagRunInfo internals
// directly (§4.4). The scheduler package makes these three queries only
// through this interface, so tests can substitute a fake; it records
// completions, failures and settlement by calling DagRunInfo's own methods.
type Inspector interface {
	// CurrentOpAndInfo returns the earliest pending op for device on
	// rinfo, whether its inputs are all present, whether it's batchable,
	// whether device has no more pending ops on rinfo, and whether rinfo
	// has no more pending ops anywhere.
	CurrentOpAndInfo(rinfo *DagRunInfo, device string) (op *Op, ready, batchable, deviceComplete, dagComplete bool)

	// OpBatchInfo returns op's configured batch limits and the size of
	// its first input along the batching dimension, as currently bound in
	// rinfo's context.
	OpBatchInfo(rinfo *DagRunInfo, op *Op) (batchSize, minBatchSize, inBatchSize int)

	// BatchingMatch reports whether opB (from rinfoB) is a valid addition
	// to a batch already anchored on opA (from rinfoA), and opB's
	// contribution to the running batch size if so.
	BatchingMatch(rinfoA *DagRunInfo, opA *Op, rinfoB *DagRunInfo, opB *Op) (compatible bool, addedBatchSize int)
}

// DefaultInspector is the production Inspector: every query is answered
// directly from the DagRunInfo(s) involved.
type DefaultInspector struct{}

var _ Inspector = DefaultInspector{}

func (DefaultInspector) CurrentOpAndInfo(rinfo *DagRunInfo, device string) (op *Op, ready, batchable, deviceComplete, dagComplete bool) {
	return rinfo.CurrentOpAndInfo(device)
}

func (DefaultInspector) OpBatchInfo(rinfo *DagRunInfo, op *Op) (batchSize, minBatchSize, inBatchSize int) {
	return rinfo.OpBatchInfo(op)
}

func (DefaultInspector) BatchingMatch(rinfoA *DagRunInfo, opA *Op, rinfoB *DagRunInfo, opB *Op) (compatible bool, addedBatchSize int) {
	return BatchingMatch(rinfoA, opA, rinfoB, opB)
}
