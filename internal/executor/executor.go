package executor

import (
	"context"

	"github.com/vk/tensorsched/internal/rundag"
)

//go:generate go run go.uber.org/mock/mockgen -destination=executormock/mock_executor.go -package=executormock github.com/vk/tensorsched/internal/executor Executor

// Executor runs ops on one device on behalf of the scheduler. Every method
// is synchronous: the worker loop calls it with its device queue's mutex
// released and blocks until it returns (§4.5, §4.7).
type Executor interface {
	// RunSingle runs one op belonging to rinfo on device and, on success,
	// returns the values it produced for op.Outputs. The scheduler merges
	// them into rinfo via DagRunInfo.CompleteOp itself.
	RunSingle(ctx context.Context, device string, rinfo *rundag.DagRunInfo, op *rundag.Op) (map[string]rundag.Value, error)

	// RunBatched runs a single matching op drawn from each element of
	// members as one combined invocation on device — members all name
	// the same model (§4.4's batching_match). The returned slice has one
	// entry per member, in the same order, holding that member's share of
	// the batch's outputs. A RunBatched failure is reported once and
	// applies to every member (§7: run_error ORs across the whole batch).
	RunBatched(ctx context.Context, device string, members []BatchMember) ([]map[string]rundag.Value, error)
}

// BatchMember is one DAG's contribution to a batched invocation.
type BatchMember struct {
	Rinfo *rundag.DagRunInfo
	Op    *rundag.Op
}
