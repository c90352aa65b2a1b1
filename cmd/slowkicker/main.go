package main

import (
	"os"

	"github.com/bioboy/slowkicker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
