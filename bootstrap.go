package main

import (
	"context"
	"fmt"

	"moveo/config"
	"moveo/database"
	"moveo/database/repository"
	"moveo/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// storeSet is a repository backend together with its connection.
type storeSet struct {
	*repository.Stores
	closers []func()
	checks  map[string]utils.HealthCheck
}

func (s *storeSet) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func (s *storeSet) HealthChecks() map[string]utils.HealthCheck {
	out := make(map[string]utils.HealthCheck, len(s.checks)+1)
	for name, check := range s.checks {
		out[name] = check
	}
	return out
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storeSet, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, err := database.ConnectMongo(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		stores, err := repository.NewMongoStores(ctx, client.Database(cfg.DatabaseName))
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &storeSet{
			Stores:  stores,
			closers: []func(){func() { _ = client.Disconnect(context.Background()) }},
			checks:  map[string]utils.HealthCheck{"mongo": func(ctx context.Context) error { return client.Ping(ctx, nil) }},
		}, nil

	case config.StorePostgres:
		pg, err := database.ConnectPostgres(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		migrator, err := database.NewMigrator(pg.DB, logger)
		if err == nil {
			err = migrator.Run(ctx)
		}
		if err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &storeSet{
			Stores:  repository.NewPostgresStores(pg.DB),
			closers: []func(){pg.Close},
			checks:  map[string]utils.HealthCheck{"postgres": func(ctx context.Context) error { return pg.Pool.Ping(ctx) }},
		}, nil

	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &storeSet{Stores: repository.NewMemoryStores()}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// queueInfra holds the Redis connections. It is empty when Redis is
// optional and unreachable.
type queueInfra struct {
	LockClient *redis.Client
	Client     *asynq.Client
	QueueOpt   asynq.RedisClientOpt
}

func (q *queueInfra) Enabled() bool { return q.Client != nil }

func (q *queueInfra) Close() {
	if q.Client != nil {
		_ = q.Client.Close()
	}
	if q.LockClient != nil {
		_ = q.LockClient.Close()
	}
}

// openQueueInfra connects to Redis. Only the in-memory development setup
// with log notifications may run without it.
func openQueueInfra(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*queueInfra, error) {
	lockClient, err := utils.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisLockDB)
	if err != nil {
		if cfg.StoreBackend == config.StoreMemory && cfg.NotifyTransport != config.TransportAsynq {
			logger.Warn("redis unavailable; deadline tasks and the sweep lock are disabled", zap.Error(err))
			return &queueInfra{}, nil
		}
		return nil, err
	}
	opt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
	return &queueInfra{
		LockClient: lockClient,
		Client:     asynq.NewClient(opt),
		QueueOpt:   opt,
	}, nil
}
