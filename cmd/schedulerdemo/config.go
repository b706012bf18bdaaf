package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

// usageIntro is long enough in one terminal-unfriendly line that it's worth
// wrapping before printing, rather than hand-breaking it across the source.
const usageIntro = "schedulerdemo submits one HCL-defined DAG of tensor, model, and script ops to a per-device DeviceRegistry, prints every op's outputs once the DAG unblocks, and exits."

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Config holds everything parseArgs extracted from the command line.
type Config struct {
	DagPath        string
	DeclaredInputs []string
	Inputs         map[string]string
	ModelEndpoints map[string]string
	Threads        int
	LogFormat      string
	LogLevel       string
	MonitorAddr    string
}

// repeatedFlag collects every occurrence of a flag passed more than once,
// e.g. -input X -input Y.
type repeatedFlag struct {
	values *[]string
}

func (r repeatedFlag) String() string { return strings.Join(*r.values, ",") }
func (r repeatedFlag) Set(v string) error {
	*r.values = append(*r.values, v)
	return nil
}

// mapFlag collects repeated key=value occurrences of a flag into a map,
// e.g. -model double=http://localhost:9000/double.
type mapFlag struct {
	values map[string]string
}

func (m mapFlag) String() string { return fmt.Sprintf("%v", m.values) }
func (m mapFlag) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	m.values[k] = val
	return nil
}

// parseArgs processes command-line arguments. It returns a populated
// Config, a boolean indicating if the program should exit cleanly, or an
// ExitError.
func parseArgs(args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("schedulerdemo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprintln(output, wordwrap.WrapString(usageIntro, 78))
		fmt.Fprint(output, `
Usage:
  schedulerdemo [options] DAG_PATH

Arguments:
  DAG_PATH
    Path to a single .hcl file or a directory containing .hcl op definitions.

Options:
`)
		flagSet.PrintDefaults()
	}

	var declaredInputs []string
	flagSet.Var(repeatedFlag{&declaredInputs}, "declare-input", "Name of a symbolic key the DAG's external inputs will bind (repeatable).")

	inputs := map[string]string{}
	flagSet.Var(mapFlag{inputs}, "input", "key=json value to bind as a literal DAG input (repeatable).")

	modelEndpoints := map[string]string{}
	flagSet.Var(mapFlag{modelEndpoints}, "model", "model_name=url to register with the HTTP model backend (repeatable).")

	threadsFlag := flagSet.Int("threads", 4, "Worker goroutines per device queue.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	monitorAddrFlag := flagSet.String("monitor-addr", "", "Address to serve the websocket monitor on. Empty disables it.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *threadsFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "threads must be at least 1"}
	}

	return &Config{
		DagPath:        path,
		DeclaredInputs: declaredInputs,
		Inputs:         inputs,
		ModelEndpoints: modelEndpoints,
		Threads:        *threadsFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		MonitorAddr:    *monitorAddrFlag,
	}, false, nil
}
