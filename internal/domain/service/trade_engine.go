package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/repository"
	"tradeapt/internal/domain/useCases"
)

// DefaultMaxSlippagePercent caps how far the live price may drift from the
// caller's observed price before a submission is rejected.
const DefaultMaxSlippagePercent = 2.0

// TradeEngine evaluates simulated trades against live prices and owns the
// pending order book. Orders whose condition is not met on submission wait
// in the book until a sweep finds the condition met or the caller cancels.
// No blockchain transaction ever happens here.
type TradeEngine struct {
	mu      sync.Mutex
	pending map[string]*model.TradeOrder

	resolver           priceResolver
	defaultMaxSlippage float64
	history            repository.TradeHistory  // optional audit sink
	events             repository.EventPublisher // optional, fire and forget
	logger             *slog.Logger
}

// TradeEngineOptions carries the optional collaborators and tuning knobs
// for NewTradeEngine. Zero values fall back to defaults.
type TradeEngineOptions struct {
	Source             repository.PriceSource
	History            repository.TradeHistory
	Events             repository.EventPublisher
	DefaultMaxSlippage float64
	FetchTimeout       time.Duration
}

// NewTradeEngine creates an engine reading prices from feed, with an
// optional REST fallback and audit/event sinks.
func NewTradeEngine(feed useCases.PriceFeed, opts TradeEngineOptions, logger *slog.Logger) *TradeEngine {
	maxSlippage := opts.DefaultMaxSlippage
	if maxSlippage <= 0 {
		maxSlippage = DefaultMaxSlippagePercent
	}
	return &TradeEngine{
		pending:            make(map[string]*model.TradeOrder),
		resolver:           newPriceResolver(feed, opts.Source, opts.FetchTimeout, logger),
		defaultMaxSlippage: maxSlippage,
		history:            opts.History,
		events:             opts.Events,
		logger:             logger,
	}
}

// Submit evaluates a trade order once. The outcome is always a structured
// result, never an error: failed and rejected_stale_price are terminal,
// executed is the success path, and pending means the order entered the
// book to be re-evaluated by background sweeps.
func (e *TradeEngine) Submit(ctx context.Context, order *model.TradeOrder) *model.TradeResult {
	now := time.Now().UTC()
	refToken := order.ReferenceToken()

	price, ok := e.resolver.resolve(ctx, refToken)
	if !ok {
		return e.record(ctx, &model.TradeResult{
			ID:        newID(),
			Status:    model.StatusFailed,
			Action:    order.Action,
			TokenFrom: order.TokenFrom,
			TokenTo:   order.TokenTo,
			AmountUSD: order.AmountUSD,
			Timestamp: now,
			Reason:    fmt.Sprintf("failed to fetch price for %s", refToken),
		})
	}

	// Staleness protection: reject if the price moved beyond tolerance
	// since the caller observed it. Enforced only at submission time.
	if order.ExpectedPrice != nil {
		maxSlippage := order.MaxSlippagePercent
		if maxSlippage <= 0 {
			maxSlippage = e.defaultMaxSlippage
		}
		valid, deviation := CheckStaleness(order.ExpectedPrice, price, maxSlippage)
		if !valid {
			direction := "increased"
			if deviation < 0 {
				direction = "decreased"
			}
			rounded := model.Round2(deviation)
			return e.record(ctx, &model.TradeResult{
				ID:             newID(),
				Status:         model.StatusRejectedStalePrice,
				Action:         order.Action,
				TokenFrom:      order.TokenFrom,
				TokenTo:        order.TokenTo,
				AmountUSD:      order.AmountUSD,
				ExecutedPrice:  &price,
				ExpectedPrice:  order.ExpectedPrice,
				PriceDeviation: &rounded,
				Timestamp:      now,
				Reason: fmt.Sprintf(
					"price %s by %.2f%% since your request: expected $%.2f, now $%.2f; please review and resubmit",
					direction, math.Abs(deviation), *order.ExpectedPrice, price),
			})
		}
	}

	if EvaluateCondition(order.Condition, price) {
		return e.record(ctx, e.executedResult(order, price, now, ""))
	}

	// Condition not met: park the order in the book.
	if order.ID == "" {
		order.ID = newID()
	}
	order.CreatedAt = now
	e.mu.Lock()
	e.pending[order.ID] = order
	e.mu.Unlock()

	e.logger.Info("order queued as pending",
		slog.String("order_id", order.ID),
		slog.String("token", refToken),
		slog.Float64("price", price))

	return e.record(ctx, &model.TradeResult{
		ID:            newID(),
		Status:        model.StatusPending,
		Action:        order.Action,
		TokenFrom:     order.TokenFrom,
		TokenTo:       order.TokenTo,
		AmountUSD:     order.AmountUSD,
		ExecutedPrice: &price,
		Timestamp:     now,
		Reason: fmt.Sprintf("condition not met: %s price is $%.4f, waiting for %s",
			refToken, price, describeCondition(order.Condition)),
	})
}

// Cancel removes a pending order from the book. It returns false when the
// id is unknown, which includes orders that already executed.
func (e *TradeEngine) Cancel(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[orderID]; !ok {
		return false
	}
	delete(e.pending, orderID)
	return true
}

// ListPending returns a copy of every order currently in the book, ordered
// by creation time.
func (e *TradeEngine) ListPending() []model.TradeOrder {
	e.mu.Lock()
	orders := make([]model.TradeOrder, 0, len(e.pending))
	for _, o := range e.pending {
		orders = append(orders, *o)
	}
	e.mu.Unlock()

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders
}

// SweepPending re-evaluates every pending order against current prices and
// executes those whose condition is now met. Orders whose reference price
// is unavailable are left untouched for the next pass. Staleness is not
// re-checked here: it guards submission only.
func (e *TradeEngine) SweepPending(ctx context.Context) []*model.TradeResult {
	e.mu.Lock()
	snapshot := make([]*model.TradeOrder, 0, len(e.pending))
	for _, o := range e.pending {
		snapshot = append(snapshot, o)
	}
	e.mu.Unlock()

	var executed []*model.TradeResult
	for _, order := range snapshot {
		price, ok := e.resolver.resolve(ctx, order.ReferenceToken())
		if !ok {
			continue
		}
		if !EvaluateCondition(order.Condition, price) {
			continue
		}

		// Remove before reporting; a concurrent Cancel wins the race and
		// suppresses the execution.
		e.mu.Lock()
		_, still := e.pending[order.ID]
		if still {
			delete(e.pending, order.ID)
		}
		e.mu.Unlock()
		if !still {
			continue
		}

		result := e.executedResult(order, price, time.Now().UTC(), "pending trade condition met")
		e.logger.Info("pending order executed",
			slog.String("order_id", order.ID),
			slog.Float64("price", price))
		executed = append(executed, e.record(ctx, result))
	}
	return executed
}

// executedResult builds the terminal success result for an order filled at
// the given price. Deviation from the expected price is computed with a
// permissive tolerance purely for reporting.
func (e *TradeEngine) executedResult(order *model.TradeOrder, price float64, now time.Time, reason string) *model.TradeResult {
	received := order.TokensReceived(price)
	var deviation *float64
	if order.ExpectedPrice != nil {
		_, d := CheckStaleness(order.ExpectedPrice, price, reportingTolerance)
		rounded := model.Round2(d)
		deviation = &rounded
	}
	return &model.TradeResult{
		ID:             newID(),
		Status:         model.StatusExecuted,
		Action:         order.Action,
		TokenFrom:      order.TokenFrom,
		TokenTo:        order.TokenTo,
		AmountUSD:      order.AmountUSD,
		ExecutedPrice:  &price,
		ExpectedPrice:  order.ExpectedPrice,
		PriceDeviation: deviation,
		TokensReceived: &received,
		Timestamp:      now,
		Reason:         reason,
	}
}

// record hands the result to the audit and event sinks. Neither outcome
// affects the result returned to the caller.
func (e *TradeEngine) record(ctx context.Context, result *model.TradeResult) *model.TradeResult {
	if e.history != nil {
		if err := e.history.SaveTradeResult(ctx, result); err != nil {
			e.logger.Warn("failed to record trade result",
				slog.String("result_id", result.ID),
				slog.Any("error", err))
		}
	}
	if e.events != nil && result.Status == model.StatusExecuted {
		if err := e.events.PublishTradeResult(ctx, result); err != nil {
			e.logger.Warn("failed to publish trade result",
				slog.String("result_id", result.ID),
				slog.Any("error", err))
		}
	}
	return result
}

func describeCondition(c model.Condition) string {
	if c.Operator == "" || c.Value == nil {
		return "an unsatisfiable condition"
	}
	return fmt.Sprintf("%s $%g", c.Operator, *c.Value)
}
