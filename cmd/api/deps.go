package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"property-registry/internal/activity"
	"property-registry/internal/config"
	"property-registry/internal/httpapi"
	"property-registry/internal/migrations"
	"property-registry/internal/registry"
	"property-registry/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// deps owns the process-wide connections and the wired handlers.
type deps struct {
	db       *sql.DB
	rdb      *redis.Client
	handlers httpapi.Handlers
}

func (d *deps) Close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}

// buildDeps opens only the backends the config selects. Postgres and Redis
// are never dialled when memory backends are chosen.
func buildDeps(ctx context.Context, cfg config.Config, log *slog.Logger) (*deps, error) {
	d := &deps{}

	if cfg.NeedsPostgres() {
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres init: %w", err)
		}
		d.db = db

		if cfg.DB.Migrate {
			n, err := migrations.Up(ctx, db)
			if err != nil {
				d.Close()
				return nil, err
			}
			log.Info("migrations applied", "count", n)
		}
	}

	if cfg.NeedsRedis() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("redis init: %w", err)
		}
		d.rdb = rdb
	}

	var store registry.Store
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		store = registry.NewPostgresStore(d.db)
	default:
		store = registry.NewMemoryStore()
	}

	var logRepo activity.Repository
	switch cfg.Activity.Backend {
	case config.BackendPostgres:
		logRepo = activity.NewPostgresRepo(d.db)
	case config.BackendRedis:
		logRepo = activity.NewRedisRepo(d.rdb, cfg.Activity.RedisKey)
	default:
		logRepo = activity.NewMemoryRepo()
	}

	tracker := activity.NewTracker(logRepo, activity.Options{
		PageSize:      cfg.Activity.PageSize,
		AppendRetries: cfg.Activity.AppendRetries,
		Location:      cfg.App.Location,
	})
	d.handlers = httpapi.Handlers{
		Registry: registry.NewService(store, tracker),
		Activity: tracker,
	}
	return d, nil
}
