package main

import (
	"os"

	"github.com/solatis/cuitarget/cmd/cuitarget/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
