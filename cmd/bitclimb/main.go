// Command bitclimb runs bit-flip hill climbing from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/copyleftdev/bitclimb/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}
