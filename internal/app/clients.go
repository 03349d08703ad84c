package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/trainingportal-backend/internal/platform/gcp"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
	"github.com/yungbote/trainingportal-backend/internal/realtime/bus"
	"github.com/yungbote/trainingportal-backend/internal/temporalx"
)

type Clients struct {
	Redis    goredis.UniversalClient
	Bus      bus.Bus
	Temporal temporalsdkclient.Client
	Media    gcp.MediaResolver
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Redis
	if cfg.RedisAddr != "" {
		rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:       []string{cfg.RedisAddr},
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("redis ping: %w", err)
		}
		b, err := bus.NewRedisBus(log, rdb, cfg.RedisChannel)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		c.Redis, c.Bus = rdb, b
	} else {
		c.Bus = bus.NewMemoryBus()
	}

	// Temporal
	if cfg.Temporal.Enabled() {
		tc, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		c.Temporal = tc
	}

	// Gcs
	media, err := gcp.NewMediaResolver(ctx, log, nil, cfg.Media)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init media resolver: %w", err)
	}
	c.Media = media
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Media != nil {
		_ = c.Media.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
