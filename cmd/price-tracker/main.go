// Package main is the entry point for the price-tracker CLI.
package main

import (
	"os"

	"github.com/maltedev/price-tracker/cmd/price-tracker/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
