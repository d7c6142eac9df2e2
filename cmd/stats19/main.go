// Package main provides the CLI for the stats19 dataset pipeline.
package main

import (
	"os"

	"github.com/datalift-labs/stats19/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
