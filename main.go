package main

import (
	"os"

	"github.com/edusis/campuscal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
