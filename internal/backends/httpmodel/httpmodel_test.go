package httpmodel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/tensorsched/internal/executor"
	"github.com/vk/tensorsched/internal/rundag"
)

func asFloat(t *testing.T, v rundag.Value) float64 {
	t.Helper()
	bf := v.V.AsBigFloat()
	f, _ := bf.Float64()
	return f
}

func doublingServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req modelInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		x, err := ctyjson.Unmarshal(req.Inputs["X"], cty.Number)
		require.NoError(t, err)
		doubled := asFloat(t, rundag.ValueOf(x)) * 2

		yRaw, err := ctyjson.Marshal(cty.NumberFloatVal(doubled), cty.Number)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(modelOutput{Outputs: map[string]json.RawMessage{"Y": yRaw}}))
	}))
}

func TestRunSingleRoundTrips(t *testing.T) {
	srv := doublingServer(t)
	defer srv.Close()

	exec := New(Endpoints{"double": srv.URL}, 2*time.Second)
	defer exec.Close()

	dag := &rundag.Dag{Ops: []*rundag.Op{
		{Device: "CPU", Kind: rundag.ModelRun, Name: "double", Inputs: []string{"X"}, Outputs: []string{"Y"}},
	}}
	rinfo := rundag.New(dag, map[string]rundag.Value{"X": rundag.ValueOf(cty.NumberIntVal(21))}, nil)

	outputs, err := exec.RunSingle(context.Background(), "CPU", rinfo, dag.Ops[0])
	require.NoError(t, err)
	assert.Equal(t, float64(42), asFloat(t, outputs["Y"]))
}

func TestRunSingleUnknownModel(t *testing.T) {
	exec := New(Endpoints{}, time.Second)
	defer exec.Close()

	dag := &rundag.Dag{Ops: []*rundag.Op{
		{Device: "CPU", Kind: rundag.ModelRun, Name: "missing", Inputs: []string{"X"}, Outputs: []string{"Y"}},
	}}
	rinfo := rundag.New(dag, map[string]rundag.Value{"X": rundag.ValueOf(cty.NumberIntVal(1))}, nil)

	_, err := exec.RunSingle(context.Background(), "CPU", rinfo, dag.Ops[0])
	assert.Error(t, err)
}

func TestRunBatchedSplitsOutputsPerMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := batchResponse{Members: make([]modelOutput, len(req.Members))}
		for i, m := range req.Members {
			x, err := ctyjson.Unmarshal(m.Inputs["x"], cty.Number)
			require.NoError(t, err)
			doubled := asFloat(t, rundag.ValueOf(x)) * 2
			raw, err := ctyjson.Marshal(cty.NumberFloatVal(doubled), cty.Number)
			require.NoError(t, err)
			resp.Members[i] = modelOutput{Outputs: map[string]json.RawMessage{"y": raw}}
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	exec := New(Endpoints{"double": srv.URL}, 2*time.Second)
	defer exec.Close()

	mk := func(n float64) (*rundag.DagRunInfo, *rundag.Op) {
		dag := &rundag.Dag{Ops: []*rundag.Op{
			{Device: "GPU:0", Kind: rundag.ModelRun, Name: "double", Inputs: []string{"x"}, Outputs: []string{"y"}},
		}}
		rinfo := rundag.New(dag, map[string]rundag.Value{"x": rundag.ValueOf(cty.NumberFloatVal(n))}, nil)
		return rinfo, dag.Ops[0]
	}

	r1, op1 := mk(1)
	r2, op2 := mk(2)

	outs, err := exec.RunBatched(context.Background(), "GPU:0", []executor.BatchMember{
		{Rinfo: r1, Op: op1},
		{Rinfo: r2, Op: op2},
	})
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, float64(2), asFloat(t, outs[0]["y"]))
	assert.Equal(t, float64(4), asFloat(t, outs[1]["y"]))
}

func TestRunSingleServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	exec := New(Endpoints{"double": srv.URL}, time.Second)
	defer exec.Close()

	dag := &rundag.Dag{Ops: []*rundag.Op{
		{Device: "CPU", Kind: rundag.ModelRun, Name: "double", Inputs: []string{"X"}, Outputs: []string{"Y"}},
	}}
	rinfo := rundag.New(dag, map[string]rundag.Value{"X": rundag.ValueOf(cty.NumberIntVal(1))}, nil)

	_, err := exec.RunSingle(context.Background(), "CPU", rinfo, dag.Ops[0])
	assert.Error(t, err)
}
