package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/prisken/hubstore/internal/cli"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
