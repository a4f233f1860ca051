// Package main provides the tidemark CLI.
package main

import (
	"os"

	"github.com/tidemark-db/tidemark/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
