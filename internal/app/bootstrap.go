package app

import (
	"context"
	"log/slog"
	"time"

	"tradeapt/config"
	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/repository"
	"tradeapt/internal/domain/service"
	ws "tradeapt/internal/handlers/websocket"
	redisrepo "tradeapt/internal/infrastructure/cache"
	"tradeapt/internal/infrastructure/marketdata"
	"tradeapt/internal/infrastructure/queue"
	chrepo "tradeapt/internal/infrastructure/storage"
)

// AppContext holds all app dependencies
type AppContext struct {
	Config      *config.Config
	Prices      *service.LivePriceService
	TradeEngine *service.TradeEngine
	AlertEngine *service.AlertEngine
	Scheduler   *Scheduler
	Broadcaster *ws.WebSocketBroadcaster
	Stream      *marketdata.StreamClient
	REST        *marketdata.RESTClient

	redis       *redisrepo.RedisRepository
	clickhouse  *chrepo.ClickHouseRepository
	kafka       *queue.KafkaPublisher
	unsubscribe []func()
	logger      *slog.Logger
}

// NewApp initializes the app context with all dependencies. Optional
// backends (Redis, ClickHouse, Kafka) degrade to warnings when
// unavailable; the engines run entirely in memory without them.
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*AppContext, error) {
	app := &AppContext{Config: cfg, logger: log}

	staleAfter := time.Duration(cfg.StaleAfterSec) * time.Second
	fetchTimeout := time.Duration(cfg.FetchTimeoutSec) * time.Second

	// Live price cache with pegged stablecoins pinned at $1
	app.Prices = service.NewLivePriceService(staleAfter, cfg.PeggedTokens, log)
	log.Info("live price cache initialized",
		slog.Any("pegged", cfg.PeggedTokens))

	// REST client for bulk seeding and on-demand lookups
	app.REST = marketdata.NewRESTClient(cfg.BinanceRESTURL, fetchTimeout, log)

	// Optional Redis snapshot cache: warm-start the in-memory cache from
	// the last run, then keep saving every accepted quote back
	if cfg.RedisEnabled {
		app.redis = redisrepo.NewRedisRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := app.redis.Ping(ctx); err != nil {
			log.Warn("Redis unavailable, continuing without quote snapshots",
				slog.Any("error", err))
			app.redis.Close()
			app.redis = nil
		} else {
			app.warmStart(ctx)
			unsub := app.Prices.Subscribe(func(symbol string, quote model.PriceQuote) {
				if err := app.redis.SaveQuote(ctx, &quote); err != nil {
					log.Warn("failed to snapshot quote",
						slog.String("symbol", symbol),
						slog.Any("error", err))
				}
			})
			app.unsubscribe = append(app.unsubscribe, unsub)
			log.Info("Redis quote snapshots enabled")
		}
	}

	// Optional ClickHouse audit storage
	var history repository.TradeHistory
	if cfg.ClickHouseEnabled {
		chRepo, err := chrepo.NewClickHouseRepository(chrepo.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
			Timeout:  cfg.ClickHouseTimeout,
		})
		if err != nil {
			log.Warn("ClickHouse unavailable, trade history disabled",
				slog.Any("error", err))
		} else {
			app.clickhouse = chRepo
			history = chRepo
			log.Info("ClickHouse trade history initialized")
		}
	}

	// Optional Kafka event stream
	var events repository.EventPublisher
	if cfg.KafkaEnabled {
		app.kafka = queue.NewKafkaPublisher(queue.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,
			TradesTopic: cfg.KafkaTradesTopic,
			AlertsTopic: cfg.KafkaAlertsTopic,
		})
		events = app.kafka
		log.Info("Kafka event publisher initialized",
			slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Engines
	app.TradeEngine = service.NewTradeEngine(app.Prices, service.TradeEngineOptions{
		Source:             app.REST,
		History:            history,
		Events:             events,
		DefaultMaxSlippage: cfg.MaxSlippagePercent,
		FetchTimeout:       fetchTimeout,
	}, log)

	app.AlertEngine = service.NewAlertEngine(app.Prices, service.AlertEngineOptions{
		Source:       app.REST,
		History:      history,
		Events:       events,
		FetchTimeout: fetchTimeout,
	}, log)

	app.Scheduler = NewScheduler(app.AlertEngine, app.TradeEngine,
		time.Duration(cfg.SweepIntervalSec)*time.Second, log)

	// Broadcaster pushes every accepted quote to connected clients
	app.Broadcaster = ws.NewWebSocketBroadcaster(staleAfter, log)
	unsub := app.Prices.Subscribe(func(symbol string, quote model.PriceQuote) {
		app.Broadcaster.BroadcastQuote(symbol, quote, quote.IsStale(staleAfter))
	})
	app.unsubscribe = append(app.unsubscribe, unsub)

	// Live market feed
	app.Stream = marketdata.NewStreamClient(cfg.BinanceStreamURL, nil, app.Prices, app.REST, log)

	return app, nil
}

// warmStart seeds the in-memory cache from Redis snapshots left by a
// previous run. Stale snapshots still seed; staleness is judged at read
// time.
func (a *AppContext) warmStart(ctx context.Context) {
	snapshots, err := a.redis.GetAllQuotes(ctx)
	if err != nil {
		a.logger.Warn("failed to load quote snapshots", slog.Any("error", err))
		return
	}
	quotes := make(map[string]model.PriceQuote, len(snapshots))
	for _, q := range snapshots {
		quotes[q.Symbol] = *q
	}
	n := a.Prices.Seed(quotes)
	a.logger.Info("warm-started price cache from Redis", slog.Int("count", n))
}

// Cleanup performs graceful shutdown of all components
func (a *AppContext) Cleanup(ctx context.Context) {
	for _, unsub := range a.unsubscribe {
		unsub()
	}

	if a.kafka != nil {
		a.logger.Info("closing Kafka publisher")
		if err := a.kafka.Close(); err != nil {
			a.logger.Warn("error closing Kafka publisher", slog.Any("error", err))
		}
	}

	if a.clickhouse != nil {
		a.logger.Info("closing ClickHouse connection")
		if err := a.clickhouse.Close(); err != nil {
			a.logger.Warn("error closing ClickHouse connection", slog.Any("error", err))
		}
	}

	if a.redis != nil {
		a.logger.Info("closing Redis connection")
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("error closing Redis connection", slog.Any("error", err))
		}
	}

	a.logger.Info("all resources cleaned up")
}
