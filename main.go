package main

import (
	"os"

	"github.com/ylztf/LWI/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
