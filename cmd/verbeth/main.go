// The entrypoint for the verbeth CLI.
package main

import (
	"log"

	"verbeth/cmd/verbeth/commands"
)

// Initialises and executes the command hierarchy.
func main() {
	if err := commands.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
