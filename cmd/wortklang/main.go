package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/tbuchert/wortklang/internal/cli"
)

func main() {
	// a missing .env is fine; keys can come from the environment or config
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
