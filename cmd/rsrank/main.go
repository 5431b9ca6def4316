package main

import (
	"os"

	"github.com/wonny/rsrank/cmd/rsrank/commands"
)

// main is the entry point for the rsrank CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/rsrank [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
