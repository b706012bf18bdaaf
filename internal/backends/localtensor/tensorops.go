package localtensor

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// TensorFunc implements one named tensor manipulation. args are the op's
// bound Inputs, in order.
type TensorFunc func(args []cty.Value) (cty.Value, error)

// TensorOps is a name-to-implementation registry for TensorOp ops, mirroring
// the handler-registry shape the rest of this codebase's lineage uses for
// dispatch.
type TensorOps map[string]TensorFunc

// DefaultTensorOps returns the built-in tensor manipulations: identity,
// concat (along the batch dimension), and slice.
func DefaultTensorOps() TensorOps {
	return TensorOps{
		"identity": tensorIdentity,
		"concat":   tensorConcat,
		"slice":    tensorSlice,
	}
}

func tensorIdentity(args []cty.Value) (cty.Value, error) {
	if len(args) != 1 {
		return cty.NilVal, fmt.Errorf("localtensor: identity takes exactly 1 input, got %d", len(args))
	}
	return args[0], nil
}

func tensorConcat(args []cty.Value) (cty.Value, error) {
	if len(args) == 0 {
		return cty.NilVal, fmt.Errorf("localtensor: concat requires at least 1 input")
	}
	var elems []cty.Value
	for _, a := range args {
		if a.IsNull() || !a.IsKnown() {
			return cty.NilVal, fmt.Errorf("localtensor: concat input is null or unknown")
		}
		if !(a.Type().IsListType() || a.Type().IsTupleType()) {
			return cty.NilVal, fmt.Errorf("localtensor: concat input is not a list/tuple: %s", a.Type().FriendlyName())
		}
		for it := a.ElementIterator(); it.Next(); {
			_, v := it.Element()
			elems = append(elems, v)
		}
	}
	if len(elems) == 0 {
		return cty.ListValEmpty(cty.DynamicPseudoType), nil
	}
	return cty.TupleVal(elems), nil
}

func tensorSlice(args []cty.Value) (cty.Value, error) {
	if len(args) != 3 {
		return cty.NilVal, fmt.Errorf("localtensor: slice takes exactly 3 inputs (tensor, start, end), got %d", len(args))
	}
	tensor, startV, endV := args[0], args[1], args[2]
	if !(tensor.Type().IsListType() || tensor.Type().IsTupleType()) {
		return cty.NilVal, fmt.Errorf("localtensor: slice input is not a list/tuple: %s", tensor.Type().FriendlyName())
	}
	start, _ := startV.AsBigFloat().Int64()
	end, _ := endV.AsBigFloat().Int64()

	var elems []cty.Value
	i := int64(0)
	for it := tensor.ElementIterator(); it.Next(); i++ {
		_, v := it.Element()
		if i >= start && i < end {
			elems = append(elems, v)
		}
	}
	if start < 0 || end < start || end > i {
		return cty.NilVal, fmt.Errorf("localtensor: slice bounds [%d:%d] out of range for length %d", start, end, i)
	}
	if len(elems) == 0 {
		return cty.ListValEmpty(cty.DynamicPseudoType), nil
	}
	return cty.TupleVal(elems), nil
}
