package main

import (
	"context"
	"os"

	"github.com/starlog-lab/starlog/pkg/cli"
)

var version = "dev"

func main() {
	if err := cli.Run(context.Background(), os.Args, version); err != nil {
		os.Exit(1)
	}
}
