package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/service"
)

// stubFeed serves fixed prices and counts lookups per symbol.
type stubFeed struct {
	mu      sync.Mutex
	prices  map[string]float64
	lookups map[string]int
}

func newStubFeed(prices map[string]float64) *stubFeed {
	return &stubFeed{prices: prices, lookups: make(map[string]int)}
}

func (s *stubFeed) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	s.prices[symbol] = price
	s.mu.Unlock()
}

func (s *stubFeed) GetPrice(symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups[symbol]++
	p, ok := s.prices[symbol]
	return p, ok
}

func (s *stubFeed) Lookups(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[symbol]
}

func (s *stubFeed) GetQuote(symbol string) (model.PriceQuote, bool) {
	p, ok := s.GetPrice(symbol)
	if !ok {
		return model.PriceQuote{}, false
	}
	return model.PriceQuote{Symbol: symbol, Price: p, LastUpdate: time.Now().UTC()}, true
}

func (s *stubFeed) GetAllQuotes() map[string]model.PriceQuote {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.PriceQuote, len(s.prices))
	for sym, p := range s.prices {
		out[sym] = model.PriceQuote{Symbol: sym, Price: p}
	}
	return out
}

func (s *stubFeed) Subscribe(func(string, model.PriceQuote)) func() {
	return func() {}
}

// stubSource is a REST fallback returning a fixed price for one symbol.
type stubSource struct {
	symbol string
	price  float64
	calls  int
}

func (s *stubSource) FetchPrice(_ context.Context, symbol string) (float64, error) {
	s.calls++
	if strings.EqualFold(symbol, s.symbol) {
		return s.price, nil
	}
	return 0, errors.New("unknown symbol")
}

func (s *stubSource) FetchQuotes(context.Context) (map[string]model.PriceQuote, error) {
	return nil, errors.New("not implemented")
}

// memoryHistory records saved results in memory.
type memoryHistory struct {
	mu      sync.Mutex
	results []*model.TradeResult
	alerts  []*model.AlertRule
}

func (h *memoryHistory) SaveTradeResult(_ context.Context, r *model.TradeResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, r)
	return nil
}

func (h *memoryHistory) SaveAlertTrigger(_ context.Context, a *model.AlertRule) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = append(h.alerts, a)
	return nil
}

func (h *memoryHistory) GetTradeResultsSince(context.Context, int64) ([]*model.TradeResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*model.TradeResult(nil), h.results...), nil
}

func buyOrder(token string, amountUSD float64, cond model.Condition) *model.TradeOrder {
	return &model.TradeOrder{
		Action:    model.ActionBuy,
		TokenFrom: "USDC",
		TokenTo:   token,
		AmountUSD: amountUSD,
		Condition: cond,
	}
}

func newTradeEngine(feed *stubFeed, opts service.TradeEngineOptions) *service.TradeEngine {
	return service.NewTradeEngine(feed, opts, testLogger())
}

func TestSubmitImmediateBuyExecutes(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 8.00})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	result := engine.Submit(context.Background(), buyOrder("APT", 20, model.Condition{Type: model.ConditionImmediate}))

	if result.Status != model.StatusExecuted {
		t.Fatalf("expected executed, got %s (%s)", result.Status, result.Reason)
	}
	if result.TokensReceived == nil || *result.TokensReceived != 2.5 {
		t.Errorf("expected 2.5 tokens received, got %v", result.TokensReceived)
	}
	if result.ExecutedPrice == nil || *result.ExecutedPrice != 8.00 {
		t.Errorf("expected executed price 8.00, got %v", result.ExecutedPrice)
	}
	if len(engine.ListPending()) != 0 {
		t.Error("executed order must not enter the pending book")
	}
}

func TestSubmitSellReceivesUSDAmount(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 8.00})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	result := engine.Submit(context.Background(), &model.TradeOrder{
		Action:    model.ActionSell,
		TokenFrom: "APT",
		TokenTo:   "USDC",
		AmountUSD: 20,
		Condition: model.Condition{Type: model.ConditionImmediate},
	})

	if result.Status != model.StatusExecuted {
		t.Fatalf("expected executed, got %s", result.Status)
	}
	if *result.TokensReceived != 20 {
		t.Errorf("sell should receive the USD amount unchanged, got %v", *result.TokensReceived)
	}
}

func TestSubmitConditionNotMetGoesPending(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 8.50})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	result := engine.Submit(context.Background(), buyOrder("APT", 20, trigger("<", 7)))

	if result.Status != model.StatusPending {
		t.Fatalf("expected pending, got %s", result.Status)
	}
	if !strings.Contains(result.Reason, "APT") || !strings.Contains(result.Reason, "< $7") {
		t.Errorf("pending reason should name the token and target, got %q", result.Reason)
	}

	pending := engine.ListPending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(pending))
	}
	if pending[0].ID == "" {
		t.Error("queued order must carry an id")
	}
}

func TestSweepPendingExecutesWhenConditionMet(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 8.50})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	engine.Submit(context.Background(), buyOrder("APT", 20, trigger("<", 7)))

	// Price has not dropped yet: nothing executes.
	if results := engine.SweepPending(context.Background()); len(results) != 0 {
		t.Fatalf("expected no executions at 8.50, got %d", len(results))
	}

	feed.SetPrice("APT", 6.90)
	results := engine.SweepPending(context.Background())
	if len(results) != 1 {
		t.Fatalf("expected 1 execution at 6.90, got %d", len(results))
	}

	result := results[0]
	if result.Status != model.StatusExecuted {
		t.Errorf("expected executed, got %s", result.Status)
	}
	if *result.ExecutedPrice != 6.90 {
		t.Errorf("expected executed price 6.90, got %v", *result.ExecutedPrice)
	}
	want := model.Round8(20.0 / 6.90)
	if *result.TokensReceived != want {
		t.Errorf("expected %v tokens received, got %v", want, *result.TokensReceived)
	}
	if len(engine.ListPending()) != 0 {
		t.Error("executed order still in the pending book")
	}
}

func TestSweepSkipsOrdersWithMissingPrice(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 8.50})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	engine.Submit(context.Background(), buyOrder("APT", 20, trigger("<", 7)))

	feed.mu.Lock()
	delete(feed.prices, "APT")
	feed.mu.Unlock()

	if results := engine.SweepPending(context.Background()); len(results) != 0 {
		t.Fatalf("expected no executions without a price, got %d", len(results))
	}
	if len(engine.ListPending()) != 1 {
		t.Error("order with unavailable price must stay pending for the next pass")
	}
}

func TestCancelPendingOrder(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 8.50})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	engine.Submit(context.Background(), buyOrder("APT", 20, trigger("<", 7)))
	pending := engine.ListPending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(pending))
	}

	if !engine.Cancel(pending[0].ID) {
		t.Fatal("first cancel should succeed")
	}
	if len(engine.ListPending()) != 0 {
		t.Error("cancelled order still listed")
	}
	if engine.Cancel(pending[0].ID) {
		t.Error("second cancel on the same id should return false")
	}
}

func TestSubmitStalePriceRejected(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 103})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	order := buyOrder("APT", 20, model.Condition{Type: model.ConditionImmediate})
	order.ExpectedPrice = f(100)
	order.MaxSlippagePercent = 2.0

	result := engine.Submit(context.Background(), order)

	if result.Status != model.StatusRejectedStalePrice {
		t.Fatalf("expected rejected_stale_price, got %s", result.Status)
	}
	if result.PriceDeviation == nil || *result.PriceDeviation != 3.0 {
		t.Errorf("expected deviation 3.0, got %v", result.PriceDeviation)
	}
	if !strings.Contains(result.Reason, "increased") || !strings.Contains(result.Reason, "3.00%") {
		t.Errorf("rejection reason should describe the move, got %q", result.Reason)
	}
	if len(engine.ListPending()) != 0 {
		t.Error("rejected order must not be queued")
	}
}

func TestSubmitWithinSlippageExecutesWithDeviation(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 101})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	order := buyOrder("APT", 20, model.Condition{Type: model.ConditionImmediate})
	order.ExpectedPrice = f(100)

	result := engine.Submit(context.Background(), order)

	if result.Status != model.StatusExecuted {
		t.Fatalf("expected executed, got %s (%s)", result.Status, result.Reason)
	}
	if result.PriceDeviation == nil || *result.PriceDeviation != 1.0 {
		t.Errorf("expected reported deviation 1.0, got %v", result.PriceDeviation)
	}
}

func TestSubmitMissingPriceFails(t *testing.T) {
	feed := newStubFeed(map[string]float64{})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	result := engine.Submit(context.Background(), buyOrder("WAT", 20, model.Condition{Type: model.ConditionImmediate}))

	if result.Status != model.StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !strings.Contains(result.Reason, "WAT") {
		t.Errorf("failure reason should name the missing token, got %q", result.Reason)
	}
	if len(engine.ListPending()) != 0 {
		t.Error("failed order must never be queued")
	}
}

func TestSubmitUsesRESTFallback(t *testing.T) {
	feed := newStubFeed(map[string]float64{})
	source := &stubSource{symbol: "APT", price: 8.00}
	engine := newTradeEngine(feed, service.TradeEngineOptions{Source: source})

	result := engine.Submit(context.Background(), buyOrder("APT", 20, model.Condition{Type: model.ConditionImmediate}))

	if result.Status != model.StatusExecuted {
		t.Fatalf("expected executed via fallback, got %s (%s)", result.Status, result.Reason)
	}
	if source.calls != 1 {
		t.Errorf("expected one fallback call, got %d", source.calls)
	}
}

func TestSellReferenceTokenIsTokenFrom(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 10})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	// Selling APT for USDC: the APT price governs the condition.
	result := engine.Submit(context.Background(), &model.TradeOrder{
		Action:    model.ActionSell,
		TokenFrom: "APT",
		TokenTo:   "USDC",
		AmountUSD: 50,
		Condition: trigger(">=", 10),
	})
	if result.Status != model.StatusExecuted {
		t.Fatalf("expected executed, got %s (%s)", result.Status, result.Reason)
	}
	if feed.Lookups("APT") == 0 {
		t.Error("sell must check the sold token's price")
	}
}

func TestResultIDsDistinctFromOrderID(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 8.50})
	engine := newTradeEngine(feed, service.TradeEngineOptions{})

	submitResult := engine.Submit(context.Background(), buyOrder("APT", 20, trigger("<", 7)))
	orderID := engine.ListPending()[0].ID
	if submitResult.ID == orderID {
		t.Error("evaluation result id must differ from the order id")
	}

	feed.SetPrice("APT", 6.50)
	sweepResults := engine.SweepPending(context.Background())
	if len(sweepResults) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(sweepResults))
	}
	if sweepResults[0].ID == submitResult.ID || sweepResults[0].ID == orderID {
		t.Error("each evaluation attempt must produce a fresh result id")
	}
}

func TestResultsRecordedToHistory(t *testing.T) {
	feed := newStubFeed(map[string]float64{"APT": 8.00})
	history := &memoryHistory{}
	engine := newTradeEngine(feed, service.TradeEngineOptions{History: history})

	engine.Submit(context.Background(), buyOrder("APT", 20, model.Condition{Type: model.ConditionImmediate}))
	engine.Submit(context.Background(), buyOrder("APT", 20, trigger("<", 7)))

	results, _ := history.GetTradeResultsSince(context.Background(), 0)
	if len(results) != 2 {
		t.Fatalf("expected 2 recorded results, got %d", len(results))
	}
	if results[0].Status != model.StatusExecuted || results[1].Status != model.StatusPending {
		t.Errorf("unexpected recorded statuses: %s, %s", results[0].Status, results[1].Status)
	}
}
