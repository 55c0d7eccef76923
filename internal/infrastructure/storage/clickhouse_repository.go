package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/repository"
)

// ClickHouseRepository implements the TradeHistory interface using
// ClickHouse as the backend database. It provides durable, analytical
// storage for evaluated trade results and triggered alerts. The engines
// treat it as a fire-and-forget sink; insert failures are logged upstream
// and never block an evaluation.
type ClickHouseRepository struct {
	conn driver.Conn
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Timeout  int
}

func NewClickHouseRepository(cfg ClickHouseConfig) (*ClickHouseRepository, error) {
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: time.Duration(cfg.Timeout) * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	// Check the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	// Ensure tables exist
	if err := createTablesIfNotExist(conn); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &ClickHouseRepository{conn: conn}, nil
}

// Ensure ClickHouseRepository implements the TradeHistory interface
var _ repository.TradeHistory = (*ClickHouseRepository)(nil)

func createTablesIfNotExist(conn driver.Conn) error {
	// Create trade results table
	err := conn.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS trade_results (
			id String,
			status String,
			action String,
			token_from String,
			token_to String,
			amount_usd Float64,
			executed_price Nullable(Float64),
			expected_price Nullable(Float64),
			price_deviation Nullable(Float64),
			tokens_received Nullable(Float64),
			reason String,
			timestamp DateTime,
			recorded_at DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (status, timestamp)
	`)
	if err != nil {
		return err
	}

	// Create alert triggers table
	err = conn.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS alert_triggers (
			id String,
			token String,
			operator String,
			target_price Float64,
			triggered_price Float64,
			message String,
			created_at DateTime,
			triggered_at DateTime,
			recorded_at DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (token, triggered_at)
	`)

	return err
}

func (r *ClickHouseRepository) Close() error {
	return r.conn.Close()
}

// SaveTradeResult records an evaluation outcome.
func (r *ClickHouseRepository) SaveTradeResult(ctx context.Context, result *model.TradeResult) error {
	query := `
		INSERT INTO trade_results (
			id, status, action, token_from, token_to, amount_usd,
			executed_price, expected_price, price_deviation, tokens_received,
			reason, timestamp
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	return r.conn.AsyncInsert(ctx, query, false,
		result.ID,
		string(result.Status),
		string(result.Action),
		result.TokenFrom,
		result.TokenTo,
		result.AmountUSD,
		result.ExecutedPrice,
		result.ExpectedPrice,
		result.PriceDeviation,
		result.TokensReceived,
		result.Reason,
		result.Timestamp,
	)
}

// SaveAlertTrigger records a fired alert. Callers guarantee TriggeredAt and
// TriggeredPrice are set.
func (r *ClickHouseRepository) SaveAlertTrigger(ctx context.Context, alert *model.AlertRule) error {
	triggeredAt := alert.CreatedAt
	if alert.TriggeredAt != nil {
		triggeredAt = *alert.TriggeredAt
	}
	var triggeredPrice float64
	if alert.TriggeredPrice != nil {
		triggeredPrice = *alert.TriggeredPrice
	}

	query := `
		INSERT INTO alert_triggers (
			id, token, operator, target_price, triggered_price,
			message, created_at, triggered_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	return r.conn.AsyncInsert(ctx, query, false,
		alert.ID,
		alert.Token,
		string(alert.Operator),
		alert.TargetPrice,
		triggeredPrice,
		alert.Message,
		alert.CreatedAt,
		triggeredAt,
	)
}

// GetTradeResultsSince retrieves recorded results after the given unix
// timestamp, oldest first.
func (r *ClickHouseRepository) GetTradeResultsSince(ctx context.Context, since int64) ([]*model.TradeResult, error) {
	query := `
		SELECT
			id, status, action, token_from, token_to, amount_usd,
			executed_price, expected_price, price_deviation, tokens_received,
			reason, timestamp
		FROM trade_results
		WHERE timestamp >= fromUnixTimestamp(?)
		ORDER BY timestamp
	`

	rows, err := r.conn.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.TradeResult
	for rows.Next() {
		var (
			result model.TradeResult
			status string
			action string
		)
		if err := rows.Scan(
			&result.ID,
			&status,
			&action,
			&result.TokenFrom,
			&result.TokenTo,
			&result.AmountUSD,
			&result.ExecutedPrice,
			&result.ExpectedPrice,
			&result.PriceDeviation,
			&result.TokensReceived,
			&result.Reason,
			&result.Timestamp,
		); err != nil {
			return nil, err
		}
		result.Status = model.TradeStatus(status)
		result.Action = model.TradeAction(action)
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
