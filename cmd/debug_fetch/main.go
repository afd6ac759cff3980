package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"repo-sync/core/config"
	"repo-sync/core/provider"
	"repo-sync/core/storage"
	"repo-sync/feature/repository"
)

// Fetches each URL given on the command line through every enabled provider
// that accepts it and prints the normalized metadata.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: debug_fetch <url> [url...]")
		os.Exit(2)
	}

	// Load config
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	var objects storage.Client
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			log.Fatal(err)
		}
		objects = client
	}

	reg := provider.NewRegistry()
	repository.RegisterProviders(reg, cfg.Providers, objects)

	providers, err := reg.Enabled(cfg.Providers.Enabled)
	if err != nil {
		fmt.Printf("WARNING: %v\n", err)
	}
	fmt.Printf("Enabled providers: %v\n", cfg.Providers.Enabled)
	fmt.Printf("Accepted formats: %s\n", provider.HelpTexts(providers))

	ctx := context.Background()
	for _, uri := range os.Args[1:] {
		fmt.Printf("\n=== %s ===\n", uri)

		matched := false
		for _, p := range providers {
			if !p.Validate(uri) {
				continue
			}
			matched = true

			md, err := p.Fetch(ctx, uri)
			switch {
			case provider.IsNotFound(err):
				fmt.Printf("[%s] NOT FOUND: %v\n", p.Kind(), err)
			case provider.IsTransient(err):
				fmt.Printf("[%s] TRANSIENT: %v\n", p.Kind(), err)
			case err != nil:
				fmt.Printf("[%s] ERROR: %v\n", p.Kind(), err)
			default:
				data, _ := json.MarshalIndent(md, "", "  ")
				fmt.Printf("[%s] %s\n", p.Kind(), data)
			}
		}

		if !matched {
			fmt.Println("No enabled provider accepts this URL")
		}
	}
}
