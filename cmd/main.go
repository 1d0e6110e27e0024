package main

import (
	"os"

	"github.com/ProCoderAkhil/mptcquiz/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
