// cmd/saltproc/main.go
//
// Entry point for the saltproc CLI. Everything lives in internal/cli; the
// process exits 2 on configuration and composition errors and 1 on any
// other failure.

package main

import (
	"os"

	"github.com/kingrea/saltproc/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
