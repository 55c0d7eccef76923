package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/repository"
)

// RedisRepository implements the QuoteCache interface using Redis as the
// backend. It holds the last known quote per token so a restarted process
// can warm its in-memory cache before the stream catches up.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(addr, password string, db int) *RedisRepository {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisRepository{client: client}
}

// Ensure RedisRepository implements the QuoteCache interface
var _ repository.QuoteCache = (*RedisRepository)(nil)

// Ping verifies the connection, used at startup to decide whether the
// warm-start path is available.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", strings.ToUpper(symbol))
}

func (r *RedisRepository) SaveQuote(ctx context.Context, quote *model.PriceQuote) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}
	return r.client.Set(ctx, quoteKey(quote.Symbol), data, 0).Err()
}

func (r *RedisRepository) GetQuote(ctx context.Context, symbol string) (*model.PriceQuote, error) {
	data, err := r.client.Get(ctx, quoteKey(symbol)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Token not found
		}
		return nil, err
	}

	var quote model.PriceQuote
	if err := json.Unmarshal([]byte(data), &quote); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	return &quote, nil
}

func (r *RedisRepository) GetAllQuotes(ctx context.Context) ([]*model.PriceQuote, error) {
	keys, err := r.client.Keys(ctx, "quote:*").Result()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []*model.PriceQuote{}, nil
	}

	// Get all values in a pipeline for efficiency
	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}

	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, err
	}

	result := make([]*model.PriceQuote, 0, len(keys))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue // Skip failed keys
		}

		var quote model.PriceQuote
		if err := json.Unmarshal([]byte(data), &quote); err != nil {
			continue // Skip malformed data
		}
		result = append(result, &quote)
	}

	return result, nil
}
