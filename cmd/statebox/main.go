// Command statebox builds, exercises and tests reactive state stores
// declared in CUE.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/statebox/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
