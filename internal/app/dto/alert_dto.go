package dto

import (
	"time"

	"tradeapt/internal/domain/model"
)

// AlertRequestDTO is an incoming alert registration.
type AlertRequestDTO struct {
	Token       string  `json:"token"`
	Operator    string  `json:"operator"`
	TargetPrice float64 `json:"target_price"`
	Message     string  `json:"message,omitempty"`
}

// AlertDTO is the wire form of an alert rule.
type AlertDTO struct {
	ID             string     `json:"id"`
	Token          string     `json:"token"`
	Operator       string     `json:"operator"`
	TargetPrice    float64    `json:"target_price"`
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	TriggeredAt    *time.Time `json:"triggered_at,omitempty"`
	TriggeredPrice *float64   `json:"triggered_price,omitempty"`
}

// FromAlert creates the wire form of an alert rule.
func FromAlert(a model.AlertRule) AlertDTO {
	return AlertDTO{
		ID:             a.ID,
		Token:          a.Token,
		Operator:       string(a.Operator),
		TargetPrice:    a.TargetPrice,
		Status:         string(a.Status),
		Message:        a.Message,
		CreatedAt:      a.CreatedAt,
		TriggeredAt:    a.TriggeredAt,
		TriggeredPrice: a.TriggeredPrice,
	}
}

// FromAlerts converts a batch of alert rules.
func FromAlerts(alerts []model.AlertRule) []AlertDTO {
	out := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		out[i] = FromAlert(a)
	}
	return out
}

// QuoteDTO is the wire form of a live price quote.
type QuoteDTO struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Change24h  float64   `json:"change_24h"`
	High24h    float64   `json:"high_24h"`
	Low24h     float64   `json:"low_24h"`
	Volume24h  float64   `json:"volume_24h"`
	LastUpdate time.Time `json:"last_update"`
	Source     string    `json:"source"`
	IsStale    bool      `json:"is_stale"`
}

// FromQuote creates the wire form of a quote, judging staleness against
// the supplied threshold.
func FromQuote(q model.PriceQuote, staleAfter time.Duration) QuoteDTO {
	return QuoteDTO{
		Symbol:     q.Symbol,
		Price:      q.Price,
		Change24h:  q.Change24h,
		High24h:    q.High24h,
		Low24h:     q.Low24h,
		Volume24h:  q.Volume24h,
		LastUpdate: q.LastUpdate,
		Source:     string(q.Source),
		IsStale:    q.IsStale(staleAfter),
	}
}
