package main

import (
	"os"

	"github.com/tmodak/parlo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
