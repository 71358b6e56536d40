// Package main is the entry point for the alerty service.
package main

import (
	"os"

	"github.com/bissquit/alerty/cmd/alerty/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
