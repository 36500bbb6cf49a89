package main

import (
	"os"

	"github.com/matheus3301/wppledger/internal/command"
)

// version is overwritten at build time using -ldflags.
var version = "dev"

func main() {
	if err := command.NewRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
