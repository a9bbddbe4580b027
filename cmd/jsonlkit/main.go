package main

import (
	"os"
)

func main() {
	state := &cli{}
	if err := execute(state.rootCommand(), os.Args[1:]); err != nil {
		state.errorPrinter(os.Stderr).Errorf("error: %v", err)
		os.Exit(1)
	}
}
