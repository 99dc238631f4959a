// neobridge - Heatmiser neoHub to MQTT bridge
//
// With no positional arguments neobridge polls the hub on an interval and
// publishes every device's temperature, heating and frost state as one JSON
// document on heating/state, optionally appending each reading to a
// SQLite or PostgreSQL readings table.
//
// With positional arguments it runs a single hub operation and exits:
//
//	neobridge --neoip 192.168.1.50 frost_on Kitchen
//	neobridge list
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := execute(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// execute parses args, runs the selected mode and returns the exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := 0
	cmd := newRootCommand(stdout, stderr, &code)
	if err := cmd.Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return code
}
