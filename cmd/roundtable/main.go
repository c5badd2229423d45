package main

import (
	"os"

	"roundtable.app/roundtable/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
