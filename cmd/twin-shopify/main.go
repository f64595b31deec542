// twin-shopify simulates the subset of the Shopify Admin REST API used by
// shopkit: orders, products, themes and theme assets, with JSON envelopes
// and Shopify-shaped error bodies.
//
// SDK compatibility target: github.com/wondertwin-ai/shopkit/pkg/shopify
// Integration method: shopify.WithBaseURL("http://localhost:12112")
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wondertwin-ai/shopkit/internal/shopifytwin"
	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/store"
	"github.com/wondertwin-ai/shopkit/pkg/twincore"
)

func main() {
	cfg := twincore.ParseFlags(shopifytwin.Name)
	if cfg.Port == 0 {
		cfg.Port = shopifytwin.DefaultPort
	}

	twin := shopifytwin.New(cfg)

	if cfg.SeedFile != "" {
		if err := twin.LoadSeedFile(cfg.SeedFile); err != nil {
			log.Fatalf("failed to load seed data: %v", err)
		}
	}

	twin.Logger.Info("twin-shopify ready",
		"port", cfg.Port,
		"token", store.DefaultToken,
		"shop", store.DefaultShop,
		"call_limit", cfg.CallLimit,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := twin.Serve(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
