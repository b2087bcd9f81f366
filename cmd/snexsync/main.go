// Command snexsync replicates SNEx1 change-log entries into SNEx2.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/snexsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
