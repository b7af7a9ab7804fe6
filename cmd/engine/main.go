package main

import (
	"os"

	"github.com/investorcenter/ic-engine/cmd/engine/commands"
)

// main is the entry point for the engine CLI:
// go run ./cmd/engine [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
