// Package main provides the autocite command-line tool.
package main

import (
	"os"

	"github.com/autocitation/autocite/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
