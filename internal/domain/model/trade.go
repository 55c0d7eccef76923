package model

import (
	"math"
	"time"
)

// TradeAction is the kind of trade the user asked for.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
	ActionSwap TradeAction = "swap"
)

// TradeStatus is the outcome of a single trade evaluation.
type TradeStatus string

const (
	StatusExecuted TradeStatus = "executed"
	StatusPending  TradeStatus = "pending"
	StatusFailed   TradeStatus = "failed"
	// StatusRejectedStalePrice means the live price moved beyond the
	// caller's slippage tolerance since they observed it.
	StatusRejectedStalePrice TradeStatus = "rejected_stale_price"
)

// ConditionType distinguishes immediate orders from price triggers.
type ConditionType string

const (
	ConditionImmediate    ConditionType = "immediate"
	ConditionPriceTrigger ConditionType = "price_trigger"
)

// Condition describes when an order may execute. Price triggers carry an
// operator and target value; immediate conditions ignore both.
type Condition struct {
	Type     ConditionType
	Operator string // "<", ">", "<=", ">=", "==" (price triggers only)
	Value    *float64
}

// TradeOrder is a simulated trade request. Orders sit in the pending book
// until their condition is met or they are cancelled; they never mutate
// in place.
type TradeOrder struct {
	ID                 string
	Action             TradeAction
	TokenFrom          string
	TokenTo            string
	AmountUSD          float64
	Condition          Condition
	ExpectedPrice      *float64 // price the caller observed before submitting
	MaxSlippagePercent float64
	CreatedAt          time.Time
}

// ReferenceToken returns the token whose price governs the order's
// condition: the received token for buys and swaps, the sold token for sells.
func (o TradeOrder) ReferenceToken() string {
	if o.Action == ActionSell {
		return o.TokenFrom
	}
	return o.TokenTo
}

// TokensReceived computes the simulated fill amount at the given price,
// rounded to 8 decimal places. Sells are already denominated in the
// receiving stablecoin.
func (o TradeOrder) TokensReceived(price float64) float64 {
	if o.Action == ActionSell {
		return o.AmountUSD
	}
	return Round8(o.AmountUSD / price)
}

// TradeResult records one evaluation attempt. Every attempt gets a fresh
// id, distinct from the order id, so rejected and failed attempts are
// auditable on their own.
type TradeResult struct {
	ID             string
	Status         TradeStatus
	Action         TradeAction
	TokenFrom      string
	TokenTo        string
	AmountUSD      float64
	ExecutedPrice  *float64
	ExpectedPrice  *float64
	PriceDeviation *float64 // signed percent the price moved from expected
	TokensReceived *float64
	Timestamp      time.Time
	Reason         string
}

// Terminal reports whether the result status can never change.
func (r TradeResult) Terminal() bool {
	return r.Status != StatusPending
}

// Round8 rounds to 8 decimal places, the precision used for fill amounts.
func Round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

// Round2 rounds to 2 decimal places, the precision used for percentages.
func Round2(v float64) float64 {
	return math.Round(v*1e2) / 1e2
}
