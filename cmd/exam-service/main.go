package main

import (
	"os"

	"github.com/anis2566/monorepo-new-sub002/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
