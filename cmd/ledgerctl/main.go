package main

import (
	"os"

	"github.com/mmynk/splitledger/internal/cli"
	"github.com/mmynk/splitledger/pkg/logging"
)

func main() {
	logging.Setup()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
