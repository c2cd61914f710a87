package main

import (
	"os"

	"github.com/zestra/zdmt/cmd/zdmt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
