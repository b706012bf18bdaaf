package rundag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestShapeScalar(t *testing.T) {
	shape := Shape(cty.NumberIntVal(3))
	assert.Equal(t, []int{}, shape)
}

func TestShapeNullAndUnknown(t *testing.T) {
	assert.Nil(t, Shape(cty.NullVal(cty.Number)))
	assert.Nil(t, Shape(cty.UnknownVal(cty.Number)))
}

func TestShapeFlatList(t *testing.T) {
	v := cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2), cty.NumberIntVal(3)})
	assert.Equal(t, []int{3}, Shape(v))
}

func TestShapeNestedList(t *testing.T) {
	row := cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)})
	v := cty.ListVal([]cty.Value{row, row, row})
	assert.Equal(t, []int{3, 2}, Shape(v))
}

func TestShapeEmptyList(t *testing.T) {
	v := cty.ListValEmpty(cty.Number)
	assert.Equal(t, []int{0}, Shape(v))
}

func TestBatchDimSize(t *testing.T) {
	v := ValueOf(cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}))
	require.Equal(t, 2, v.BatchDimSize())

	scalar := ValueOf(cty.NumberIntVal(7))
	require.Equal(t, 0, scalar.BatchDimSize())
}

func TestNonBatchDimsEqual(t *testing.T) {
	row := func(n int) cty.Value {
		vals := make([]cty.Value, n)
		for i := range vals {
			vals[i] = cty.NumberIntVal(int64(i))
		}
		return cty.ListVal(vals)
	}

	a := ValueOf(cty.ListVal([]cty.Value{row(4), row(4)}))
	b := ValueOf(cty.ListVal([]cty.Value{row(4), row(4), row(4)}))
	assert.True(t, NonBatchDimsEqual(a, b), "only the 0th dimension differs")

	c := ValueOf(cty.ListVal([]cty.Value{row(5)}))
	assert.False(t, NonBatchDimsEqual(a, c), "inner dimension differs")
}
