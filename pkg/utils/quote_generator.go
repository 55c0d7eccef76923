package utils

import (
	"math/rand"
	"time"

	"tradeapt/internal/domain/model"
)

// QuoteGenerator produces synthetic quotes as a bounded random walk per
// token. It stands in for the live market feed in demo mode and in tests.
type QuoteGenerator struct {
	rng    *rand.Rand
	prices map[string]float64
}

// NewQuoteGenerator seeds a generator with believable starting prices.
func NewQuoteGenerator() *QuoteGenerator {
	return &QuoteGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		prices: map[string]float64{
			"BTC":  64000.0,
			"ETH":  3400.0,
			"SOL":  150.0,
			"APT":  8.5,
			"SUI":  1.8,
			"ADA":  0.45,
			"XRP":  0.55,
			"DOGE": 0.12,
			"LINK": 14.0,
			"AVAX": 28.0,
		},
	}
}

// Tokens returns the tokens this generator walks.
func (g *QuoteGenerator) Tokens() []string {
	tokens := make([]string, 0, len(g.prices))
	for t := range g.prices {
		tokens = append(tokens, t)
	}
	return tokens
}

// NextQuotes advances every token one step and returns the fresh quotes.
// Each step moves the price by at most 0.5% in either direction.
func (g *QuoteGenerator) NextQuotes() []model.PriceQuote {
	now := time.Now().UTC()
	quotes := make([]model.PriceQuote, 0, len(g.prices))
	for token, price := range g.prices {
		step := 1 + (g.rng.Float64()-0.5)*0.01
		next := price * step
		g.prices[token] = next

		quotes = append(quotes, model.PriceQuote{
			Symbol:     token,
			Price:      next,
			Change24h:  (g.rng.Float64() - 0.5) * 10,
			High24h:    next * 1.05,
			Low24h:     next * 0.95,
			Volume24h:  g.rng.Float64() * 1e6,
			LastUpdate: now,
			Source:     model.SourceStream,
		})
	}
	return quotes
}
