// Package main implements the entry point for the classifier API server,
// which accepts course review text and classifies its sentiment through
// an asynchronous task pipeline.
package main

import (
	"log"
)

// main loads configuration, wires the application components and runs
// the HTTP server until a shutdown signal arrives.
func main() {
	app, err := newApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
