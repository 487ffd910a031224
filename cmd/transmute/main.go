// Command transmute applies transformation recipes to crystal structures
// and records their lineage.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/transmute/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
