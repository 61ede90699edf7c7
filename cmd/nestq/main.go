// Command nestq inspects and edits a persisted nested record queue.
package main

import (
	"os"

	"github.com/roach88/nestq/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
