// Package main provides the entry point for ragctl.
package main

import (
	"fmt"
	"os"

	"github.com/akolanti/GoIngest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
