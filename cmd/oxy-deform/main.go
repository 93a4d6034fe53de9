package main

import (
	"os"

	"github.com/Carmen-Shannon/oxy-deform/cmd/oxy-deform/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
