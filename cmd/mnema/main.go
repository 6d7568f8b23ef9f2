package main

import (
	"fmt"
	"os"

	"github.com/evharten/mnema/internal/cli"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = ""

func main() {
	if version != "" {
		cli.SetVersion(version)
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
