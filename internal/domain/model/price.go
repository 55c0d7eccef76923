package model

import "time"

// QuoteSource identifies where a price quote came from.
type QuoteSource string

const (
	// SourceStream marks quotes delivered by the live market data stream.
	SourceStream QuoteSource = "stream"
	// SourceREST marks quotes fetched through the one-shot REST fallback.
	SourceREST QuoteSource = "rest"
	// SourceFixed marks pegged assets whose price never moves (stablecoins).
	SourceFixed QuoteSource = "fixed"
)

// PriceQuote is the latest known market data for a single token.
type PriceQuote struct {
	Symbol     string
	Price      float64
	Change24h  float64
	High24h    float64
	Low24h     float64
	Volume24h  float64
	LastUpdate time.Time
	Source     QuoteSource
}

// IsStale reports whether the quote is older than maxAge.
func (q PriceQuote) IsStale(maxAge time.Duration) bool {
	return time.Since(q.LastUpdate) > maxAge
}
