// Command modulish is a plugin-hosting bot shell. It loads plugins from
// the plugins root at startup and serves a management console for
// lifecycle and remote-install operations.
package main

import (
	"fmt"
	"os"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
