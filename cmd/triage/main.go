package main

import (
	"os"

	"github.com/mediscan-triage-server/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
