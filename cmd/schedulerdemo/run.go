package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/tensorsched/internal/backends/httpmodel"
	"github.com/vk/tensorsched/internal/ctxlog"
	"github.com/vk/tensorsched/internal/dagconfig"
	"github.com/vk/tensorsched/internal/monitor"
	"github.com/vk/tensorsched/internal/rundag"
	"github.com/vk/tensorsched/internal/scheduler"
)

// printClient is the demo's rundag.Client: it just records the outcome and
// releases the caller blocked on done.
type printClient struct {
	out  io.Writer
	done chan *rundag.DagRunInfo
}

func (c *printClient) Unblock(ctx context.Context, rinfo *rundag.DagRunInfo) {
	c.done <- rinfo
}

func newLogger(format, level string, out io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

func parseLiteralInputs(raw map[string]string) (map[string]rundag.Value, error) {
	inputs := make(map[string]rundag.Value, len(raw))
	for k, v := range raw {
		ty, err := ctyjson.ImpliedType([]byte(v))
		if err != nil {
			return nil, fmt.Errorf("schedulerdemo: input %q: %w", k, err)
		}
		val, err := ctyjson.Unmarshal([]byte(v), ty)
		if err != nil {
			return nil, fmt.Errorf("schedulerdemo: input %q: %w", k, err)
		}
		inputs[k] = rundag.ValueOf(val)
	}
	return inputs, nil
}

// run loads the DAG at cfg.DagPath, submits it to a freshly wired
// DeviceRegistry, waits for it to unblock, and prints every op output to
// out. It's the demo's entire lifecycle: build, submit, wait, report,
// shut down.
func run(ctx context.Context, cfg *Config, out io.Writer) error {
	logger := newLogger(cfg.LogFormat, cfg.LogLevel, out)
	ctx = ctxlog.WithLogger(ctx, logger)

	dag, err := dagconfig.LoadDag(ctx, cfg.DagPath, cfg.DeclaredInputs)
	if err != nil {
		return err
	}
	if len(dag.Ops) == 0 {
		fmt.Fprintln(out, "no ops found; nothing to run")
		return nil
	}

	inputs, err := parseLiteralInputs(cfg.Inputs)
	if err != nil {
		return err
	}

	var model *httpmodel.Executor
	if len(cfg.ModelEndpoints) > 0 {
		model = httpmodel.New(cfg.ModelEndpoints, 30*time.Second)
		defer model.Close()
	}

	reg := scheduler.NewDeviceRegistry(ctx, newMuxExecutor(model), cfg.Threads)
	defer reg.Shutdown(ctx)

	var monitorSrv *http.Server
	if cfg.MonitorAddr != "" {
		hub := monitor.NewHub(ctx, reg, time.Second)
		monitorCtx, cancelMonitor := context.WithCancel(ctx)
		defer cancelMonitor()
		go hub.Run(monitorCtx)

		monitorSrv = &http.Server{Addr: cfg.MonitorAddr, Handler: hub}
		go func() {
			if err := monitorSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("schedulerdemo: monitor server stopped", "error", err)
			}
		}()
		defer monitorSrv.Shutdown(ctx)
		logger.Info("monitor listening", "addr", cfg.MonitorAddr)
	}

	client := &printClient{out: out, done: make(chan *rundag.DagRunInfo, 1)}
	rinfo := rundag.New(dag, inputs, client)
	reg.Submit(rinfo)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case done := <-client.done:
		return report(out, done)
	}
}

func report(out io.Writer, rinfo *rundag.DagRunInfo) error {
	if err := rinfo.Err(); err != nil {
		fmt.Fprintf(out, "dag failed: %v\n", err)
		return err
	}
	for _, op := range rinfo.Dag.Ops {
		for _, key := range op.Outputs {
			v, ok := rinfo.Result(key)
			if !ok {
				continue
			}
			raw, err := ctyjson.Marshal(v.V, v.V.Type())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s = %s\n", key, raw)
		}
	}
	return nil
}
