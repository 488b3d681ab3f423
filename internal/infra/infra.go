package infra

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/polalpha/aware-gateway/internal/store"
)

// Infra holds all live infrastructure handles for the running service.
type Infra struct {
	Store *store.Provider
	Redis *redis.Client

	// dev-mode internal instance; nil in production
	miniRedis *miniredis.Miniredis
}

// Setup initialises the relational store and the token Redis.
//   - dev=true: in-memory sqlite store + in-process miniredis, no external deps.
//   - dev=false: connects to the configured database server and Redis.
func Setup(ctx context.Context, cfg *Config, dev bool) (*Infra, error) {
	inf := &Infra{}

	dbCfg := cfg.Database
	if dev {
		dbCfg = store.Config{Type: "sqlite", Database: ":memory:"}

		var err error
		inf.miniRedis, err = miniredis.Run()
		if err != nil {
			return nil, err
		}
		inf.Redis = redis.NewClient(&redis.Options{Addr: inf.miniRedis.Addr()})

		log.Info().
			Str("redis", inf.miniRedis.Addr()).
			Msg("dev: in-memory sqlite store + in-process miniredis")
	} else {
		inf.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := inf.Redis.Ping(ctx).Err(); err != nil {
			inf.Close()
			return nil, err
		}
	}

	st, err := store.Open(ctx, dbCfg)
	if err != nil {
		inf.Close()
		return nil, err
	}
	inf.Store = st

	return inf, nil
}

// Close releases all infrastructure resources.
func (inf *Infra) Close() {
	if inf.Store != nil {
		_ = inf.Store.Close()
	}
	if inf.Redis != nil {
		_ = inf.Redis.Close()
	}
	if inf.miniRedis != nil {
		inf.miniRedis.Close()
	}
}
