package rundag

// Kind distinguishes the three op shapes a client DAG may contain.
type Kind int

const (
	// TensorOp is a plain tensor manipulation (reshape, slice, concat, ...).
	TensorOp Kind = iota
	// ModelRun invokes a named model; may be batchable.
	ModelRun
	// ScriptRun invokes a named script.
	ScriptRun
)

func (k Kind) String() string {
	switch k {
	case TensorOp:
		return "tensor-op"
	case ModelRun:
		return "model-run"
	case ScriptRun:
		return "script-run"
	default:
		return "unknown"
	}
}

// Op is a single node of a client's submitted DAG, pinned to one device.
type Op struct {
	// Device is the compute target this op must run on. Comparison across
	// the scheduler is case-insensitive (normalized to uppercase).
	Device string
	// Kind distinguishes model/script/tensor ops.
	Kind Kind
	// Name identifies the model or script to invoke; irrelevant for
	// TensorOp. Two ModelRun ops are batching candidates only if their
	// Name matches.
	Name string
	// Inputs are the symbolic context keys this op reads.
	Inputs []string
	// Outputs are the symbolic context keys this op produces.
	Outputs []string
	// BatchSize is the maximum combined 0th-dimension size across a batch
	// of ModelRun ops invoking Name. 0 means not batchable.
	BatchSize int
	// MinBatchSize is the minimum combined 0th-dimension size a batch must
	// reach before this op may run; 0 means no minimum.
	MinBatchSize int
}

// Batchable reports whether op is a model op with a positive BatchSize.
func (op *Op) Batchable() bool {
	return op.Kind == ModelRun && op.BatchSize > 0
}

// Dag is an ordered sequence of ops submitted together by one client. Order
// matters: per device, ops execute in this submission order.
type Dag struct {
	Ops []*Op
}
