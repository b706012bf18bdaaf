package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

// main is the entrypoint for the scheduler demo binary.
func main() {
	if err := runCLI(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runCLI encapsulates the main application logic for easier testing and
// error handling.
func runCLI(out io.Writer, args []string) error {
	cfg, shouldExit, err := parseArgs(args, out)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	return run(context.Background(), cfg, out)
}
