package cache_test

import (
	"context"
	"testing"
	"time"

	"tradeapt/config"
	"tradeapt/internal/domain/model"
	"tradeapt/internal/infrastructure/cache"
)

func TestRedisRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	// Load test config
	cfg := config.LoadConfig()

	// Initialize repository
	repo := cache.NewRedisRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer repo.Close()

	ctx := context.Background()
	if err := repo.Ping(ctx); err != nil {
		t.Skipf("Redis not reachable at %s: %v", cfg.RedisAddr, err)
	}

	quote := model.PriceQuote{
		Symbol:     "TESTCOIN",
		Price:      12.34,
		Change24h:  -0.5,
		High24h:    13.0,
		Low24h:     12.0,
		Volume24h:  1000.0,
		LastUpdate: time.Now().UTC().Truncate(time.Second),
		Source:     model.SourceStream,
	}

	// Test SaveQuote
	if err := repo.SaveQuote(ctx, &quote); err != nil {
		t.Fatalf("Failed to save quote: %v", err)
	}

	// Test GetQuote
	retrieved, err := repo.GetQuote(ctx, "testcoin")
	if err != nil {
		t.Fatalf("Failed to get quote: %v", err)
	}
	if retrieved == nil {
		t.Fatal("Retrieved quote is nil")
	}
	if retrieved.Symbol != quote.Symbol {
		t.Errorf("Expected symbol %s, got %s", quote.Symbol, retrieved.Symbol)
	}
	if retrieved.Price != quote.Price {
		t.Errorf("Expected price %f, got %f", quote.Price, retrieved.Price)
	}

	// Missing tokens come back as nil without an error
	missing, err := repo.GetQuote(ctx, "NEVERSAVED")
	if err != nil {
		t.Fatalf("Failed to get missing quote: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing quote, got %+v", missing)
	}

	// Test GetAllQuotes
	all, err := repo.GetAllQuotes(ctx)
	if err != nil {
		t.Fatalf("Failed to get all quotes: %v", err)
	}
	found := false
	for _, q := range all {
		if q.Symbol == "TESTCOIN" {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected TESTCOIN in all quotes")
	}
}
