package main

import (
	"context"
	"fmt"
	"os"

	"github.com/smartalerte/smartalerte/cmd"
)

// Set with -ldflags at build time.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	root := cmd.RootCommand(cmd.BuildInfo{Version: version, BuildDate: buildDate})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
