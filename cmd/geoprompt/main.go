// Package main is the entry point for the geoprompt server and CLI.
package main

import (
	"fmt"
	"os"

	_ "geoprompt/cmd/geoprompt/docs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
