package main

import (
	"os"

	"github.com/okian/poseparty/cmd/pose-replay/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
