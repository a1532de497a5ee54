package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/containerhouse/leadrelay/pkg/cli"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using environment")
	}

	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
