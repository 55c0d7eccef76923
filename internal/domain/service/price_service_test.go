package service_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func streamQuote(symbol string, price float64) model.PriceQuote {
	return model.PriceQuote{
		Symbol:     symbol,
		Price:      price,
		LastUpdate: time.Now().UTC(),
		Source:     model.SourceStream,
	}
}

func TestPeggedAssetsSeededAndImmune(t *testing.T) {
	prices := service.NewLivePriceService(30*time.Second, []string{"USDC", "USDT"}, testLogger())

	price, ok := prices.GetPrice("USDC")
	if !ok || price != 1.0 {
		t.Fatalf("expected USDC pinned at 1.0, got %v (ok=%v)", price, ok)
	}

	prices.Apply(streamQuote("USDC", 0.97))
	quote, _ := prices.GetQuote("usdc")
	if quote.Price != 1.0 || quote.Source != model.SourceFixed {
		t.Errorf("pegged asset was overwritten: %+v", quote)
	}
}

func TestGetPriceIdempotent(t *testing.T) {
	prices := service.NewLivePriceService(30*time.Second, nil, testLogger())
	prices.Apply(streamQuote("BTC", 65000))

	first, ok := prices.GetQuote("BTC")
	if !ok {
		t.Fatal("expected BTC quote")
	}
	second, _ := prices.GetQuote("BTC")
	if first != second {
		t.Errorf("repeated reads differ: %+v vs %+v", first, second)
	}
	if !first.LastUpdate.Equal(second.LastUpdate) {
		t.Error("timestamps differ across reads with no intervening update")
	}
}

func TestUnknownSymbolAbsent(t *testing.T) {
	prices := service.NewLivePriceService(30*time.Second, nil, testLogger())
	if _, ok := prices.GetPrice("DOGE"); ok {
		t.Error("expected no price for never-seen symbol")
	}
}

func TestSubscribeDedupThreshold(t *testing.T) {
	prices := service.NewLivePriceService(30*time.Second, nil, testLogger())

	var mu sync.Mutex
	var got []float64
	unsubscribe := prices.Subscribe(func(symbol string, quote model.PriceQuote) {
		mu.Lock()
		got = append(got, quote.Price)
		mu.Unlock()
	})

	prices.Apply(streamQuote("ETH", 3000))      // first sighting, notifies
	prices.Apply(streamQuote("ETH", 3000.1))    // ~0.003% move, below threshold
	prices.Apply(streamQuote("ETH", 3010))      // ~0.33% move, notifies
	unsubscribe()
	prices.Apply(streamQuote("ETH", 4000)) // after removal, silent

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d (%v)", len(got), got)
	}
	if got[0] != 3000 || got[1] != 3010 {
		t.Errorf("unexpected notification prices: %v", got)
	}

	// The cache itself still holds the deduped tick.
	if price, _ := prices.GetPrice("ETH"); price != 4000 {
		t.Errorf("expected cache to hold 4000, got %v", price)
	}
}

func TestListenerPanicDoesNotPropagate(t *testing.T) {
	prices := service.NewLivePriceService(30*time.Second, nil, testLogger())
	prices.Subscribe(func(string, model.PriceQuote) { panic("bad listener") })

	var notified bool
	prices.Subscribe(func(string, model.PriceQuote) { notified = true })

	prices.Apply(streamQuote("SOL", 150))
	if !notified {
		t.Error("panicking listener starved the healthy one")
	}
}

func TestSeedSkipsPeggedAndNewerQuotes(t *testing.T) {
	prices := service.NewLivePriceService(30*time.Second, []string{"USDT"}, testLogger())

	fresh := streamQuote("BTC", 65000)
	prices.Apply(fresh)

	stale := model.PriceQuote{
		Symbol:     "BTC",
		Price:      60000,
		LastUpdate: time.Now().UTC().Add(-time.Minute),
		Source:     model.SourceREST,
	}
	seeded := prices.Seed(map[string]model.PriceQuote{
		"BTC":  stale,
		"USDT": {Symbol: "USDT", Price: 0.99, LastUpdate: time.Now().UTC()},
		"eth":  {Symbol: "eth", Price: 3000, LastUpdate: time.Now().UTC(), Source: model.SourceREST},
	})

	if seeded != 1 {
		t.Errorf("expected 1 seeded quote, got %d", seeded)
	}
	if price, _ := prices.GetPrice("BTC"); price != 65000 {
		t.Errorf("seed overwrote a fresher quote: %v", price)
	}
	if price, _ := prices.GetPrice("USDT"); price != 1.0 {
		t.Errorf("seed touched a pegged asset: %v", price)
	}
	quote, ok := prices.GetQuote("ETH")
	if !ok || quote.Symbol != "ETH" {
		t.Errorf("seed did not canonicalize symbol: %+v (ok=%v)", quote, ok)
	}
}

func TestQuoteStaleness(t *testing.T) {
	prices := service.NewLivePriceService(30*time.Second, nil, testLogger())
	old := model.PriceQuote{
		Symbol:     "BTC",
		Price:      65000,
		LastUpdate: time.Now().UTC().Add(-time.Minute),
		Source:     model.SourceStream,
	}
	prices.Apply(old)

	quote, _ := prices.GetQuote("BTC")
	if !quote.IsStale(prices.StaleAfter()) {
		t.Error("minute-old quote should be stale at a 30s threshold")
	}
	if quote.IsStale(5 * time.Minute) {
		t.Error("minute-old quote should not be stale at a 5m threshold")
	}
}
