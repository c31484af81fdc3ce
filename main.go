package main

import (
	"github.com/joho/godotenv"

	"github.com/yorozuya-cybersecurity/skillguard/pkg/cli"
)

func main() {
	// Load environment variables from .env files if present. Helps local dev.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cli.Execute()
}
