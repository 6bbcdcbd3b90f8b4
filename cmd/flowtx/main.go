package main

import (
	"os"

	"github.com/Dicklesworthstone/flowtx/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
