package model

import "time"

// AlertOperator is a price comparison for alerts. Unlike trade conditions,
// alerts do not support "==".
type AlertOperator string

const (
	OperatorLessThan     AlertOperator = "<"
	OperatorGreaterThan  AlertOperator = ">"
	OperatorLessEqual    AlertOperator = "<="
	OperatorGreaterEqual AlertOperator = ">="
)

// AlertStatus is the lifecycle state of an alert. Triggered and cancelled
// are terminal; an alert never re-triggers.
type AlertStatus string

const (
	AlertActive    AlertStatus = "active"
	AlertTriggered AlertStatus = "triggered"
	AlertCancelled AlertStatus = "cancelled"
)

// AlertRule is a user-registered price alert.
type AlertRule struct {
	ID             string
	Token          string
	Operator       AlertOperator
	TargetPrice    float64
	Status         AlertStatus
	Message        string
	CreatedAt      time.Time
	TriggeredAt    *time.Time
	TriggeredPrice *float64
}
