// Package dto holds the JSON transfer shapes for the API boundary and
// conversions to and from domain models. Field names match the wire format
// the conversational frontend already speaks.
package dto

import (
	"fmt"
	"strings"
	"time"

	"tradeapt/internal/domain/model"
)

// ConditionDTO is the wire form of a trade condition.
type ConditionDTO struct {
	Type     string   `json:"type"`
	Operator string   `json:"operator,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

// TradeRequestDTO is an incoming trade submission.
type TradeRequestDTO struct {
	Action             string       `json:"action"`
	TokenFrom          string       `json:"tokenFrom"`
	TokenTo            string       `json:"tokenTo"`
	AmountUSD          float64      `json:"amountUsd"`
	Conditions         ConditionDTO `json:"conditions"`
	ExpectedPrice      *float64     `json:"expectedPrice,omitempty"`
	MaxSlippagePercent *float64     `json:"maxSlippagePercent,omitempty"`
}

// ToModel validates the request and converts it to a domain order.
func (d *TradeRequestDTO) ToModel() (*model.TradeOrder, error) {
	action := model.TradeAction(strings.ToLower(d.Action))
	switch action {
	case model.ActionBuy, model.ActionSell, model.ActionSwap:
	default:
		return nil, fmt.Errorf("invalid action %q: use buy, sell or swap", d.Action)
	}
	if d.AmountUSD <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %v", d.AmountUSD)
	}

	condType := model.ConditionType(d.Conditions.Type)
	switch condType {
	case model.ConditionImmediate, model.ConditionPriceTrigger:
	case "":
		condType = model.ConditionImmediate
	default:
		return nil, fmt.Errorf("invalid condition type %q", d.Conditions.Type)
	}

	order := &model.TradeOrder{
		Action:        action,
		TokenFrom:     strings.ToUpper(d.TokenFrom),
		TokenTo:       strings.ToUpper(d.TokenTo),
		AmountUSD:     d.AmountUSD,
		ExpectedPrice: d.ExpectedPrice,
		Condition: model.Condition{
			Type:     condType,
			Operator: d.Conditions.Operator,
			Value:    d.Conditions.Value,
		},
	}
	if d.MaxSlippagePercent != nil {
		order.MaxSlippagePercent = *d.MaxSlippagePercent
	}
	return order, nil
}

// TradeResultDTO is the wire form of one evaluation outcome.
type TradeResultDTO struct {
	TradeID        string    `json:"trade_id"`
	Status         string    `json:"status"`
	Action         string    `json:"action"`
	TokenFrom      string    `json:"tokenFrom"`
	TokenTo        string    `json:"tokenTo"`
	AmountUSD      float64   `json:"amountUsd"`
	ExecutedPrice  *float64  `json:"executedPrice,omitempty"`
	ExpectedPrice  *float64  `json:"expectedPrice,omitempty"`
	PriceDeviation *float64  `json:"priceDeviation,omitempty"`
	TokensReceived *float64  `json:"tokensReceived,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Reason         string    `json:"reason,omitempty"`
}

// FromTradeResult creates the wire form of a domain result.
func FromTradeResult(r *model.TradeResult) *TradeResultDTO {
	return &TradeResultDTO{
		TradeID:        r.ID,
		Status:         string(r.Status),
		Action:         string(r.Action),
		TokenFrom:      r.TokenFrom,
		TokenTo:        r.TokenTo,
		AmountUSD:      r.AmountUSD,
		ExecutedPrice:  r.ExecutedPrice,
		ExpectedPrice:  r.ExpectedPrice,
		PriceDeviation: r.PriceDeviation,
		TokensReceived: r.TokensReceived,
		Timestamp:      r.Timestamp,
		Reason:         r.Reason,
	}
}

// PendingOrderDTO is the wire form of an order waiting in the book.
type PendingOrderDTO struct {
	ID         string       `json:"id"`
	Action     string       `json:"action"`
	TokenFrom  string       `json:"tokenFrom"`
	TokenTo    string       `json:"tokenTo"`
	AmountUSD  float64      `json:"amountUsd"`
	Conditions ConditionDTO `json:"conditions"`
	CreatedAt  time.Time    `json:"created_at"`
}

// FromPendingOrder creates the wire form of a pending order.
func FromPendingOrder(o model.TradeOrder) PendingOrderDTO {
	return PendingOrderDTO{
		ID:        o.ID,
		Action:    string(o.Action),
		TokenFrom: o.TokenFrom,
		TokenTo:   o.TokenTo,
		AmountUSD: o.AmountUSD,
		Conditions: ConditionDTO{
			Type:     string(o.Condition.Type),
			Operator: o.Condition.Operator,
			Value:    o.Condition.Value,
		},
		CreatedAt: o.CreatedAt,
	}
}

// FromPendingOrders converts a batch of pending orders.
func FromPendingOrders(orders []model.TradeOrder) []PendingOrderDTO {
	out := make([]PendingOrderDTO, len(orders))
	for i, o := range orders {
		out[i] = FromPendingOrder(o)
	}
	return out
}
