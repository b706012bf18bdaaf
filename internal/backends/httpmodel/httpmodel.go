package httpmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ctyjson "github.com/zclconf/go-cty/cty/json"
	"resty.dev/v3"

	"github.com/vk/tensorsched/internal/executor"
	"github.com/vk/tensorsched/internal/rundag"
)

// Endpoints maps a model name to the URL of its serving endpoint.
type Endpoints map[string]string

// Executor runs ModelRun ops by POSTing their inputs to a remote endpoint
// and decoding the response back into rundag.Value outputs.
type Executor struct {
	client    *resty.Client
	endpoints Endpoints
}

var _ executor.Executor = (*Executor)(nil)

// New creates an Executor that dispatches to endpoints, applying timeout to
// every request.
func New(endpoints Endpoints, timeout time.Duration) *Executor {
	return &Executor{
		client:    resty.New().SetTimeout(timeout),
		endpoints: endpoints,
	}
}

// Close releases the underlying HTTP client's idle connections.
func (e *Executor) Close() error {
	return e.client.Close()
}

type modelInput struct {
	Op     string                     `json:"op"`
	Inputs map[string]json.RawMessage `json:"inputs"`
}

type batchRequest struct {
	Members []modelInput `json:"members"`
}

type modelOutput struct {
	Outputs map[string]json.RawMessage `json:"outputs"`
}

type batchResponse struct {
	Members []modelOutput `json:"members"`
}

func encodeInputs(op *rundag.Op, lookup func(string) (rundag.Value, bool)) (map[string]json.RawMessage, error) {
	encoded := make(map[string]json.RawMessage, len(op.Inputs))
	for _, name := range op.Inputs {
		v, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("httpmodel: input %q not bound", name)
		}
		raw, err := ctyjson.Marshal(v.V, v.V.Type())
		if err != nil {
			return nil, fmt.Errorf("httpmodel: encoding input %q: %w", name, err)
		}
		encoded[name] = raw
	}
	return encoded, nil
}

func decodeOutputs(op *rundag.Op, raw map[string]json.RawMessage) (map[string]rundag.Value, error) {
	outputs := make(map[string]rundag.Value, len(op.Outputs))
	for _, name := range op.Outputs {
		r, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("httpmodel: response missing output %q", name)
		}
		ty, err := ctyjson.ImpliedType(r)
		if err != nil {
			return nil, fmt.Errorf("httpmodel: decoding output %q: %w", name, err)
		}
		v, err := ctyjson.Unmarshal(r, ty)
		if err != nil {
			return nil, fmt.Errorf("httpmodel: decoding output %q: %w", name, err)
		}
		outputs[name] = rundag.ValueOf(v)
	}
	return outputs, nil
}

// RunSingle implements executor.Executor.
func (e *Executor) RunSingle(ctx context.Context, device string, rinfo *rundag.DagRunInfo, op *rundag.Op) (map[string]rundag.Value, error) {
	url, ok := e.endpoints[op.Name]
	if !ok {
		return nil, fmt.Errorf("httpmodel: no endpoint registered for model %q", op.Name)
	}

	inputs, err := encodeInputs(op, rinfo.Result)
	if err != nil {
		return nil, err
	}

	var envelope modelOutput
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(modelInput{Op: op.Name, Inputs: inputs}).
		SetResult(&envelope).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("httpmodel: request to %q failed: %w", op.Name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("httpmodel: %q returned status %d", op.Name, resp.StatusCode())
	}

	return decodeOutputs(op, envelope.Outputs)
}

// RunBatched implements executor.Executor: every member shares op.Name (the
// scheduler only ever batches same-model ops), so one request covers the
// whole group.
func (e *Executor) RunBatched(ctx context.Context, device string, members []executor.BatchMember) ([]map[string]rundag.Value, error) {
	if len(members) == 0 {
		return nil, nil
	}
	name := members[0].Op.Name
	url, ok := e.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("httpmodel: no endpoint registered for model %q", name)
	}

	req := batchRequest{Members: make([]modelInput, len(members))}
	for i, m := range members {
		inputs, err := encodeInputs(m.Op, m.Rinfo.Result)
		if err != nil {
			return nil, err
		}
		req.Members[i] = modelInput{Op: m.Op.Name, Inputs: inputs}
	}

	var envelope batchResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&envelope).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("httpmodel: batched request to %q failed: %w", name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("httpmodel: %q returned status %d", name, resp.StatusCode())
	}
	if len(envelope.Members) != len(members) {
		return nil, fmt.Errorf("httpmodel: expected %d batch results, got %d", len(members), len(envelope.Members))
	}

	outs := make([]map[string]rundag.Value, len(members))
	for i, m := range members {
		decoded, err := decodeOutputs(m.Op, envelope.Members[i].Outputs)
		if err != nil {
			return nil, err
		}
		outs[i] = decoded
	}
	return outs, nil
}
