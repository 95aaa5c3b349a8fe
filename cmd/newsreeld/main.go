// Command newsreeld runs the newsreel daemon: the five-lane workflow that
// turns queued news stories into finished vertical videos, plus the HTTP API
// the newsreel CLI talks to.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"newsreel/internal/config"
	"newsreel/internal/daemonrun"
)

func main() {
	// API keys may live in a .env next to the working directory.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "newsreeld: %v\n", err)
		os.Exit(1)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		fmt.Fprintf(os.Stderr, "newsreeld: %v\n", err)
		os.Exit(1)
	}
}
