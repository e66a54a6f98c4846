package main

import (
	"os"

	"github.com/mingzhao/fundv/cmd/fundv/commands"
)

// main is the entry point for the fundv CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
