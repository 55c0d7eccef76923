// Package service implements the core engines: the live price cache, the
// conditional trade engine, and the alert engine. It depends only on domain
// models and repository interfaces, never on infrastructure.
package service

import (
	"math"

	"tradeapt/internal/domain/model"
)

// equalityTolerance is the absolute window treated as equal for "=="
// price triggers, instead of exact float comparison.
const equalityTolerance = 0.01

// reportingTolerance is passed to CheckStaleness after a successful
// execution purely to compute the deviation for reporting. It never gates.
const reportingTolerance = 100.0

// EvaluateCondition reports whether a trade condition holds at the current
// price. Immediate conditions always hold. Price triggers missing an
// operator or value, and unknown operators, evaluate to false rather than
// erroring.
func EvaluateCondition(cond model.Condition, currentPrice float64) bool {
	switch cond.Type {
	case model.ConditionImmediate:
		return true
	case model.ConditionPriceTrigger:
		if cond.Operator == "" || cond.Value == nil {
			return false
		}
		target := *cond.Value
		switch cond.Operator {
		case "<":
			return currentPrice < target
		case ">":
			return currentPrice > target
		case "<=":
			return currentPrice <= target
		case ">=":
			return currentPrice >= target
		case "==":
			return math.Abs(currentPrice-target) < equalityTolerance
		}
	}
	return false
}

// CheckStaleness compares the price the caller last observed against the
// live price. A nil expected price always passes with zero deviation.
// The deviation is the signed percentage the price moved from expected;
// the check passes when its magnitude is within maxSlippagePercent.
func CheckStaleness(expectedPrice *float64, currentPrice, maxSlippagePercent float64) (bool, float64) {
	if expectedPrice == nil {
		return true, 0
	}
	deviation := (currentPrice - *expectedPrice) / *expectedPrice * 100
	return math.Abs(deviation) <= maxSlippagePercent, deviation
}
