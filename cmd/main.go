package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"topic-quiz-service/internal/cli"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("warning: error loading .env file: %v", err)
		}
	}
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
