package main

import (
	"os"

	"github.com/openalpha/stakevault/cmd/stakevaultd/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
