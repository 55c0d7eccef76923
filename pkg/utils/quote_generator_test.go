package utils_test

import (
	"math"
	"testing"

	"tradeapt/pkg/utils"
)

func TestNextQuotesWalksEveryToken(t *testing.T) {
	g := utils.NewQuoteGenerator()
	tokens := g.Tokens()

	quotes := g.NextQuotes()
	if len(quotes) != len(tokens) {
		t.Fatalf("got %d quotes, want %d", len(quotes), len(tokens))
	}
	for _, q := range quotes {
		if q.Price <= 0 {
			t.Errorf("%s price = %v, want positive", q.Symbol, q.Price)
		}
		if q.High24h < q.Price || q.Low24h > q.Price {
			t.Errorf("%s range [%v, %v] does not contain price %v", q.Symbol, q.Low24h, q.High24h, q.Price)
		}
	}
}

func TestStepSizeBounded(t *testing.T) {
	g := utils.NewQuoteGenerator()

	prev := make(map[string]float64)
	for _, q := range g.NextQuotes() {
		prev[q.Symbol] = q.Price
	}

	for i := 0; i < 100; i++ {
		for _, q := range g.NextQuotes() {
			change := math.Abs(q.Price-prev[q.Symbol]) / prev[q.Symbol]
			if change > 0.005+1e-9 {
				t.Fatalf("%s moved %.4f%% in one step", q.Symbol, change*100)
			}
			prev[q.Symbol] = q.Price
		}
	}
}
