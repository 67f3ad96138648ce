package main

import (
	"log"

	"turtle-trading/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}
