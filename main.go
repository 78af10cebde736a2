package main

import (
	"os"

	"github.com/hfarouk/docdex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
