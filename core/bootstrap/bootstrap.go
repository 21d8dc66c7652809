// Package bootstrap wires the bot's infrastructure from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/fontbot/core/config"
	"github.com/m3rciful/fontbot/core/cursor"
	"github.com/m3rciful/fontbot/core/database"
	"github.com/m3rciful/fontbot/core/logger"
	"github.com/m3rciful/fontbot/core/transport"
	"github.com/m3rciful/fontbot/core/transport/rubika"
	"github.com/m3rciful/fontbot/core/transport/telegram"
)

// Options control the bootstrap pipeline. Nil hooks use the real implementations.
type Options struct {
	Config *config.Config

	LoggerInit func(*config.Config) error
	Connect    func(context.Context, config.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(context.Context, config.DatabaseConfig) error
	NewRedis   func(config.RedisConfig) redis.UniversalClient
	HTTPClient *http.Client
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Client transport.Client
	Store  cursor.Store

	DB    *sqlx.DB
	Redis redis.UniversalClient
}

// Close releases backend connections.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger, builds the transport client and opens the
// configured cursor store.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	client, err := NewClient(cfg, opts.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: transport init failed: %w", err)
	}
	res := &Result{Client: client}

	start := time.Now()
	if err := openStore(ctx, cfg, opts, res); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("bootstrap: state backend %s: %w", cfg.State.Backend, err)
	}
	logger.Wire.LogAttrs(ctx, slog.LevelInfo, "wire.ready",
		slog.String("transport", cfg.Transport.Kind),
		slog.String("backend", cfg.State.Backend),
		slog.Duration("duration", logger.Took(start)),
	)
	return res, nil
}

// NewClient builds the transport selected by transport.kind.
func NewClient(cfg *config.Config, httpClient *http.Client) (transport.Client, error) {
	if httpClient == nil {
		httpClient = transport.BuildHTTPClient(cfg.RequestTimeout())
	}
	switch cfg.Transport.Kind {
	case config.TransportTelegram:
		return telegram.New(cfg.Transport.BaseURL, cfg.Transport.Token, httpClient)
	case config.TransportRubika, "":
		return rubika.New(cfg.Transport.BaseURL, cfg.Transport.Token, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
	}
}

func openStore(ctx context.Context, cfg *config.Config, opts Options, res *Result) error {
	switch cfg.State.Backend {
	case config.BackendPostgres:
		connect := opts.Connect
		if connect == nil {
			connect = database.Connect
		}
		db, err := connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		res.DB = db

		migrate := opts.Migrate
		if migrate == nil {
			migrate = database.RunMigrations
		}
		if err := migrate(ctx, cfg.Database); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		res.Store = cursor.NewPostgresStore(db, cfg.State.Key)

	case config.BackendRedis:
		newRedis := opts.NewRedis
		if newRedis == nil {
			newRedis = func(rc config.RedisConfig) redis.UniversalClient {
				return redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
			}
		}
		rdb := newRedis(cfg.Redis)
		res.Redis = rdb
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		res.Store = cursor.NewRedisStore(rdb, cfg.State.Key)

	default:
		res.Store = cursor.NewFileStore(cfg.State.File)
	}
	return nil
}
