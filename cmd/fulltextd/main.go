// Package main provides the entry point for the fulltextd daemon.
package main

import (
	"os"

	"github.com/Aman-CERP/fulltextd/cmd/fulltextd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
