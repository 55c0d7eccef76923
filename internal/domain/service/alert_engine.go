package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/repository"
	"tradeapt/internal/domain/useCases"
)

// Notifier is the alert trigger callback. It runs synchronously inside the
// sweep; panics are caught so a broken sink cannot corrupt alert state.
type Notifier func(alert model.AlertRule, price float64)

// AlertEngine owns the alert registry and evaluates active alerts against
// live prices. Triggered and cancelled alerts are terminal; an alert never
// fires twice.
type AlertEngine struct {
	mu     sync.Mutex
	alerts map[string]*model.AlertRule

	notifyMu sync.Mutex
	notifier Notifier

	resolver priceResolver
	history  repository.TradeHistory
	events   repository.EventPublisher
	logger   *slog.Logger
}

// AlertEngineOptions carries optional collaborators for NewAlertEngine.
type AlertEngineOptions struct {
	Source       repository.PriceSource
	History      repository.TradeHistory
	Events       repository.EventPublisher
	FetchTimeout time.Duration
}

// NewAlertEngine creates an engine reading prices from feed.
func NewAlertEngine(feed useCases.PriceFeed, opts AlertEngineOptions, logger *slog.Logger) *AlertEngine {
	return &AlertEngine{
		alerts:   make(map[string]*model.AlertRule),
		resolver: newPriceResolver(feed, opts.Source, opts.FetchTimeout, logger),
		history:  opts.History,
		events:   opts.Events,
		logger:   logger,
	}
}

// SetNotifier registers the callback fired when an alert triggers.
func (e *AlertEngine) SetNotifier(fn Notifier) {
	e.notifyMu.Lock()
	e.notifier = fn
	e.notifyMu.Unlock()
}

// Create registers a new active alert. Alerts support the four ordering
// comparators only; "==" is a trade-condition feature.
func (e *AlertEngine) Create(token string, operator model.AlertOperator, targetPrice float64, message string) (*model.AlertRule, error) {
	switch operator {
	case model.OperatorLessThan, model.OperatorGreaterThan,
		model.OperatorLessEqual, model.OperatorGreaterEqual:
	default:
		return nil, fmt.Errorf("invalid operator %q: use <, >, <= or >=", operator)
	}

	alert := &model.AlertRule{
		ID:          newID(),
		Token:       strings.ToUpper(token),
		Operator:    operator,
		TargetPrice: targetPrice,
		Status:      model.AlertActive,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}

	e.mu.Lock()
	e.alerts[alert.ID] = alert
	e.mu.Unlock()

	e.logger.Info("alert created",
		slog.String("alert_id", alert.ID),
		slog.String("token", alert.Token),
		slog.String("operator", string(operator)),
		slog.Float64("target_price", targetPrice))

	copied := *alert
	return &copied, nil
}

// Get returns a copy of the alert with the given id.
func (e *AlertEngine) Get(id string) (*model.AlertRule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	alert, ok := e.alerts[id]
	if !ok {
		return nil, false
	}
	copied := *alert
	return &copied, true
}

// List returns copies of all alerts, oldest first. With activeOnly set,
// triggered and cancelled alerts are filtered out.
func (e *AlertEngine) List(activeOnly bool) []model.AlertRule {
	e.mu.Lock()
	out := make([]model.AlertRule, 0, len(e.alerts))
	for _, alert := range e.alerts {
		if activeOnly && alert.Status != model.AlertActive {
			continue
		}
		out = append(out, *alert)
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Cancel moves an active alert to cancelled without firing a notification.
// It returns false for unknown ids and alerts already terminal.
func (e *AlertEngine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	alert, ok := e.alerts[id]
	if !ok || alert.Status != model.AlertActive {
		return false
	}
	alert.Status = model.AlertCancelled
	e.logger.Info("alert cancelled", slog.String("alert_id", id))
	return true
}

// Delete removes an alert from the registry regardless of status.
func (e *AlertEngine) Delete(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.alerts[id]; !ok {
		return false
	}
	delete(e.alerts, id)
	return true
}

// Sweep checks every active alert against freshly fetched prices, grouping
// by token so each distinct token costs one lookup. Alerts whose condition
// holds flip to triggered, fire the notifier, and are returned. Tokens
// whose price fetch failed are skipped this pass without state change.
func (e *AlertEngine) Sweep(ctx context.Context) []model.AlertRule {
	e.mu.Lock()
	byToken := make(map[string][]*model.AlertRule)
	for _, alert := range e.alerts {
		if alert.Status == model.AlertActive {
			byToken[alert.Token] = append(byToken[alert.Token], alert)
		}
	}
	e.mu.Unlock()

	var triggered []model.AlertRule
	for token, rules := range byToken {
		price, ok := e.resolver.resolve(ctx, token)
		if !ok {
			continue
		}

		for _, alert := range rules {
			if !alertConditionMet(alert.Operator, alert.TargetPrice, price) {
				continue
			}

			e.mu.Lock()
			if alert.Status != model.AlertActive {
				e.mu.Unlock()
				continue
			}
			now := time.Now().UTC()
			p := price
			alert.Status = model.AlertTriggered
			alert.TriggeredAt = &now
			alert.TriggeredPrice = &p
			copied := *alert
			e.mu.Unlock()

			e.logger.Info("alert triggered",
				slog.String("alert_id", copied.ID),
				slog.String("token", copied.Token),
				slog.Float64("price", price))

			e.fire(copied, price)
			e.recordTrigger(ctx, &copied)
			triggered = append(triggered, copied)
		}
	}
	return triggered
}

// alertConditionMet applies the four-way comparator. Alerts deliberately
// have no "==" case.
func alertConditionMet(op model.AlertOperator, target, current float64) bool {
	switch op {
	case model.OperatorLessThan:
		return current < target
	case model.OperatorGreaterThan:
		return current > target
	case model.OperatorLessEqual:
		return current <= target
	case model.OperatorGreaterEqual:
		return current >= target
	}
	return false
}

// fire invokes the notifier, swallowing panics so a broken notification
// sink never affects the registry.
func (e *AlertEngine) fire(alert model.AlertRule, price float64) {
	e.notifyMu.Lock()
	fn := e.notifier
	e.notifyMu.Unlock()
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("alert notifier panicked",
				slog.String("alert_id", alert.ID),
				slog.Any("panic", r))
		}
	}()
	fn(alert, price)
}

func (e *AlertEngine) recordTrigger(ctx context.Context, alert *model.AlertRule) {
	if e.history != nil {
		if err := e.history.SaveAlertTrigger(ctx, alert); err != nil {
			e.logger.Warn("failed to record alert trigger",
				slog.String("alert_id", alert.ID),
				slog.Any("error", err))
		}
	}
	if e.events != nil {
		if err := e.events.PublishAlertTrigger(ctx, alert); err != nil {
			e.logger.Warn("failed to publish alert trigger",
				slog.String("alert_id", alert.ID),
				slog.Any("error", err))
		}
	}
}
