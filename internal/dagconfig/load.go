package dagconfig

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/tensorsched/internal/ctxlog"
	"github.com/vk/tensorsched/internal/rundag"
)

// decodeFile parses and decodes a single HCL file into the format-agnostic
// hclFile model.
func decodeFile(parser *hclparse.Parser, path string) (*hclFile, error) {
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("dagconfig: parsing %s: %w", path, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("dagconfig: decoding %s: %w", path, diags)
	}
	return &parsed, nil
}

// LoadDag finds, parses, and merges every .hcl file at path (a single file
// or a directory) into one rundag.Dag, in file-then-declaration order.
// declaredInputs names the symbolic keys the caller will bind before
// submitting the DAG — every op input must resolve to one of these or to
// an earlier op's output.
func LoadDag(ctx context.Context, path string, declaredInputs []string) (*rundag.Dag, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Warn("dagconfig: no .hcl files found", "path", path)
		return &rundag.Dag{}, nil
	}
	logger.Debug("dagconfig: found files", "count", len(files), "path", path)

	merged := &hclFile{}
	parser := hclparse.NewParser()
	for _, file := range files {
		parsed, err := decodeFile(parser, file)
		if err != nil {
			return nil, err
		}
		merged.Ops = append(merged.Ops, parsed.Ops...)
	}

	return Build(merged, declaredInputs)
}
