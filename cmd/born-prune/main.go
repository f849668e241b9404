// Package main provides the born-prune CLI: score and prune parameter groups
// described by a YAML manifest over a safetensors state dict.
package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	app := newApp(os.Stdout)
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}
