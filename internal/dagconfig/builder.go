package dagconfig

import (
	"fmt"

	"github.com/vk/tensorsched/internal/rundag"
)

func parseKind(label, s string) (rundag.Kind, error) {
	switch s {
	case "tensor":
		return rundag.TensorOp, nil
	case "model":
		return rundag.ModelRun, nil
	case "script":
		return rundag.ScriptRun, nil
	default:
		return 0, fmt.Errorf("dagconfig: op %q: unknown kind %q (want tensor, model, or script)", label, s)
	}
}

// createOps is the first construction pass: translate every decoded HCL
// block into a *rundag.Op, validating each in isolation. Declaration order
// is preserved — it becomes each op's position in its device's execution
// order within the DAG.
func createOps(file *hclFile) ([]*rundag.Op, error) {
	ops := make([]*rundag.Op, 0, len(file.Ops))
	for _, raw := range file.Ops {
		if raw.Device == "" {
			return nil, fmt.Errorf("dagconfig: op %q: device is required", raw.Label)
		}
		kind, err := parseKind(raw.Label, raw.Kind)
		if err != nil {
			return nil, err
		}
		if (kind == rundag.ModelRun || kind == rundag.ScriptRun) && raw.OpName == "" {
			return nil, fmt.Errorf("dagconfig: op %q: op_name is required for kind %q", raw.Label, raw.Kind)
		}
		if kind != rundag.ModelRun && (raw.BatchSize != 0 || raw.MinBatchSize != 0) {
			return nil, fmt.Errorf("dagconfig: op %q: batch_size/min_batch_size only apply to kind=model", raw.Label)
		}
		ops = append(ops, &rundag.Op{
			Device:       raw.Device,
			Kind:         kind,
			Name:         raw.OpName,
			Inputs:       append([]string(nil), raw.Inputs...),
			Outputs:      append([]string(nil), raw.Outputs...),
			BatchSize:    raw.BatchSize,
			MinBatchSize: raw.MinBatchSize,
		})
	}
	return ops, nil
}

// linkOps is the second construction pass: walk ops in declaration order,
// checking that every input either came from the caller's declared inputs
// or was produced by an earlier op, and that no two ops produce the same
// output key. It mirrors the teacher's create-then-link split, except the
// "link" here is validation of implicit, name-based producer/consumer
// edges rather than construction of explicit graph edges — rundag derives
// readiness from the context map directly, so no edge list is persisted.
func linkOps(ops []*rundag.Op, declaredInputs []string) error {
	available := make(map[string]bool, len(declaredInputs))
	for _, in := range declaredInputs {
		available[in] = true
	}

	for i, op := range ops {
		for _, in := range op.Inputs {
			if !available[in] {
				return fmt.Errorf("dagconfig: op %d (%s on %s): input %q is not a declared input or an earlier op's output", i, op.Kind, op.Device, in)
			}
		}
		for _, out := range op.Outputs {
			if available[out] {
				return fmt.Errorf("dagconfig: op %d (%s on %s): output %q collides with an earlier input or output", i, op.Kind, op.Device, out)
			}
			available[out] = true
		}
	}
	return nil
}

// Build runs both construction passes over a decoded file, given the set of
// symbolic keys the caller has already bound (the DAG's external inputs).
func Build(file *hclFile, declaredInputs []string) (*rundag.Dag, error) {
	ops, err := createOps(file)
	if err != nil {
		return nil, err
	}
	if err := linkOps(ops, declaredInputs); err != nil {
		return nil, err
	}
	return &rundag.Dag{Ops: ops}, nil
}
