// Command rawmap runs a raw SELECT and prints each row mapped onto a model
// described in a YAML or TOML file.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
