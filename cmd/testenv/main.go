package main

import (
	"fmt"
	"os"

	"github.com/TobaSenju/mahalend-contracts-periphery/cmd/testenv/commands"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/logger"
)

func main() {
	logger.InitializeAndConfigure()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
