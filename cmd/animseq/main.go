// Command animseq plays step-based animation sequences on a sprite.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/animseq/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
