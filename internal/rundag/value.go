package rundag

import "github.com/zclconf/go-cty/cty"

// Value is the tensor representation stored in a DagRunInfo's context. A
// tensor is modeled as a (possibly nested) cty list or tuple whose outermost
// dimension is the batching dimension; a bare scalar has no batch dimension
// at all.
type Value struct {
	V cty.Value
}

// ValueOf wraps a cty.Value as a Value.
func ValueOf(v cty.Value) Value {
	return Value{V: v}
}

// Shape returns the tensor's dimensions, outermost first. A scalar value
// (not a list/tuple/set) has an empty shape. An unknown or null value has a
// nil shape.
func Shape(v cty.Value) []int {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	t := v.Type()
	if !(t.IsListType() || t.IsTupleType() || t.IsSetType()) {
		return []int{}
	}
	length := v.LengthInt()
	if length == 0 {
		return []int{0}
	}
	it := v.ElementIterator()
	it.Next()
	_, elem := it.Element()
	return append([]int{length}, Shape(elem)...)
}

// BatchDimSize returns the size of v's outermost (0th) dimension, or 0 if v
// is a scalar, null, unknown, or otherwise has no batch dimension.
func (v Value) BatchDimSize() int {
	shape := Shape(v.V)
	if len(shape) == 0 {
		return 0
	}
	return shape[0]
}

// NonBatchDimsEqual reports whether a and b agree on every dimension except
// the 0th.
func NonBatchDimsEqual(a, b Value) bool {
	sa, sb := Shape(a.V), Shape(b.V)
	if len(sa) != len(sb) {
		return false
	}
	for i := 1; i < len(sa); i++ {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
