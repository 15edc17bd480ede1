package main

import (
	"context"
	"fmt"
	"os"

	"github.com/unkn0wn-root/kvcache/internal/cli"
)

// Build information set via ldflags
var version = "dev"

func main() {
	root := cli.NewRootCmd(version, os.Stdout)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "kvcache:", err)
		os.Exit(1)
	}
}
