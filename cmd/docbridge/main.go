// Command docbridge serves document collections to DuckDB over Arrow Flight.
package main

import (
	"fmt"
	"os"

	"github.com/hugr-lab/docbridge/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
