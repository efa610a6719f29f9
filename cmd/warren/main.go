package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// Best effort; the environment wins over .env values.
	_ = godotenv.Load()
	Execute()
}
