package main

import (
	"context"
	"fmt"

	"github.com/vk/tensorsched/internal/backends/httpmodel"
	"github.com/vk/tensorsched/internal/backends/localtensor"
	"github.com/vk/tensorsched/internal/executor"
	"github.com/vk/tensorsched/internal/rundag"
)

// muxExecutor dispatches TensorOp/ScriptRun ops to an in-process executor
// and ModelRun ops to a remote one. A DeviceRegistry only ever talks to one
// Executor, so something has to route by op kind — BatchingMatch only ever
// groups ModelRun ops together, so RunBatched always routes whole.
type muxExecutor struct {
	local *localtensor.Executor
	model *httpmodel.Executor
}

var _ executor.Executor = (*muxExecutor)(nil)

func newMuxExecutor(model *httpmodel.Executor) *muxExecutor {
	return &muxExecutor{local: localtensor.New(nil, nil), model: model}
}

func (m *muxExecutor) RunSingle(ctx context.Context, device string, rinfo *rundag.DagRunInfo, op *rundag.Op) (map[string]rundag.Value, error) {
	if op.Kind == rundag.ModelRun {
		if m.model == nil {
			return nil, fmt.Errorf("schedulerdemo: op %q: no model backend configured", op.Name)
		}
		return m.model.RunSingle(ctx, device, rinfo, op)
	}
	return m.local.RunSingle(ctx, device, rinfo, op)
}

func (m *muxExecutor) RunBatched(ctx context.Context, device string, members []executor.BatchMember) ([]map[string]rundag.Value, error) {
	if len(members) == 0 {
		return nil, nil
	}
	if members[0].Op.Kind == rundag.ModelRun {
		if m.model == nil {
			return nil, fmt.Errorf("schedulerdemo: batch on %q: no model backend configured", device)
		}
		return m.model.RunBatched(ctx, device, members)
	}
	return m.local.RunBatched(ctx, device, members)
}
