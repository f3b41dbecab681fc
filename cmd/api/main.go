package main

import (
	"log"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/config"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/pkg/server"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	// Load configuration from YAML
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	// Create the assistant server with explicit config
	srv := server.New(cfg)

	// Start the server
	log.Println("Starting lab assistant server...")
	if err := srv.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
