package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/thatjpcsguy/fleetctl/internal/cmd"
)

var version = "0.1.0"

func main() {
	if err := cmd.NewRootCmd(version).Execute(); err != nil {
		// the login hint has already been printed
		if !errors.Is(err, cmd.ErrNotLoggedIn) {
			fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		}
		os.Exit(1)
	}
}
