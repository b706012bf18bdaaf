package localtensor

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tensorsched/internal/executor"
	"github.com/vk/tensorsched/internal/rundag"
)

// Executor runs TensorOp and ScriptRun ops directly against rundag.Value,
// without leaving the process. ModelRun ops are out of scope; a ModelRun op
// reaching RunSingle/RunBatched is a caller error.
type Executor struct {
	tensorOps TensorOps
	scripts   Scripts
}

var _ executor.Executor = (*Executor)(nil)

// New creates an Executor backed by tensorOps and scripts. A nil tensorOps
// falls back to DefaultTensorOps(); a nil scripts is an empty registry.
func New(tensorOps TensorOps, scripts Scripts) *Executor {
	if tensorOps == nil {
		tensorOps = DefaultTensorOps()
	}
	if scripts == nil {
		scripts = Scripts{}
	}
	return &Executor{tensorOps: tensorOps, scripts: scripts}
}

func (e *Executor) runOne(rinfo *rundag.DagRunInfo, op *rundag.Op) (map[string]rundag.Value, error) {
	args := make([]cty.Value, len(op.Inputs))
	for i, name := range op.Inputs {
		v, ok := rinfo.Result(name)
		if !ok {
			return nil, fmt.Errorf("localtensor: input %q not bound", name)
		}
		args[i] = v.V
	}

	var out cty.Value
	switch op.Kind {
	case rundag.TensorOp:
		fn, ok := e.tensorOps[op.Name]
		if !ok {
			return nil, fmt.Errorf("localtensor: unknown tensor op %q", op.Name)
		}
		v, err := fn(args)
		if err != nil {
			return nil, err
		}
		out = v
	case rundag.ScriptRun:
		expr, ok := e.scripts[op.Name]
		if !ok {
			return nil, fmt.Errorf("localtensor: unknown script %q", op.Name)
		}
		v, err := evalScript(expr, args)
		if err != nil {
			return nil, err
		}
		out = v
	default:
		return nil, fmt.Errorf("localtensor: op kind %s not supported by this executor", op.Kind)
	}

	if len(op.Outputs) == 0 {
		return nil, nil
	}
	if len(op.Outputs) != 1 {
		return nil, fmt.Errorf("localtensor: op %q declares %d outputs, only single-output ops are supported", op.Name, len(op.Outputs))
	}
	return map[string]rundag.Value{op.Outputs[0]: rundag.ValueOf(out)}, nil
}

// RunSingle implements executor.Executor.
func (e *Executor) RunSingle(ctx context.Context, device string, rinfo *rundag.DagRunInfo, op *rundag.Op) (map[string]rundag.Value, error) {
	return e.runOne(rinfo, op)
}

// RunBatched implements executor.Executor. TensorOp and ScriptRun ops are
// never grouped into a batch by the scheduler (only ModelRun ops with
// matching Name are), so this runs each member independently; it exists
// only so Executor satisfies the interface.
func (e *Executor) RunBatched(ctx context.Context, device string, members []executor.BatchMember) ([]map[string]rundag.Value, error) {
	outs := make([]map[string]rundag.Value, len(members))
	for i, m := range members {
		out, err := e.runOne(m.Rinfo, m.Op)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return outs, nil
}
