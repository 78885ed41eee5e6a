package main

import (
	"os"

	"github.com/zjregee/copilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
