// Package cmd runs the bot process: config, bootstrap, poll until signalled.
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/m3rciful/fontbot/core/bootstrap"
	"github.com/m3rciful/fontbot/core/config"
	"github.com/m3rciful/fontbot/core/dispatch"
	"github.com/m3rciful/fontbot/core/logger"
	"github.com/m3rciful/fontbot/core/poller"
	"github.com/m3rciful/fontbot/core/sender"
)

// DefaultConfigEnvVar names the variable holding the config path.
const DefaultConfigEnvVar = "CONFIG_PATH"

// Options describe how to load configuration, bootstrap and run the bot.
type Options struct {
	// ConfigPath wins over the environment when set.
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig     func(path string) (*config.Config, error)
	Bootstrap      func(ctx context.Context, cfg *config.Config) (*bootstrap.Result, error)
	ShutdownLogger func() error
}

// ResolveConfigPath picks the explicit path, then the env var, then the default.
func ResolveConfigPath(explicit, envVar, def string) (string, error) {
	if p := strings.TrimSpace(explicit); p != "" {
		return p, nil
	}
	if envVar == "" {
		envVar = DefaultConfigEnvVar
	}
	if p := strings.TrimSpace(os.Getenv(envVar)); p != "" {
		return p, nil
	}
	if p := strings.TrimSpace(def); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via flag, %s or default", envVar)
}

// Run loads configuration, bootstraps infrastructure and polls until SIGINT or SIGTERM.
func Run(ctx context.Context, opts Options) error {
	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = config.Load
	}
	boot := opts.Bootstrap
	if boot == nil {
		boot = func(ctx context.Context, cfg *config.Config) (*bootstrap.Result, error) {
			return bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
		}
	}

	cfgPath, err := ResolveConfigPath(opts.ConfigPath, opts.ConfigEnvVar, opts.DefaultConfigPath)
	if err != nil {
		return err
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	startedAt := time.Now()
	res, err := boot(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn(ctx, "wire", "close.fail", slog.String("err", logger.SanitizeError(err)))
		}
	}()

	app, err := Assemble(cfg, res)
	if err != nil {
		return fmt.Errorf("cmd: assemble failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info(ctx, "app", "ready",
		slog.Duration("startup_duration", logger.Took(startedAt)),
	)
	err = app.Poller.Run(ctx)
	logger.Info(context.Background(), "app", "shutdown",
		slog.String("cursor", deref(app.Poller.Cursor())),
		slog.Uint64("send_errors", app.Sender.ErrorCount()),
	)
	return err
}

// App is the assembled runtime.
type App struct {
	Poller *poller.Poller
	Sender *sender.Sender
}

// Assemble builds the sender, dispatcher and poller over bootstrapped infrastructure.
func Assemble(cfg *config.Config, res *bootstrap.Result) (*App, error) {
	if cfg == nil || res == nil || res.Client == nil || res.Store == nil {
		return nil, fmt.Errorf("incomplete bootstrap result")
	}
	loc, err := time.LoadLocation(cfg.Greeting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("greeting timezone: %w", err)
	}

	out := sender.New(res.Client, sender.Options{Pacing: cfg.Pacing()})
	d := dispatch.New(out, dispatch.Options{
		Location:        loc,
		MaxMessageChars: cfg.Sender.MaxMessageChars,
		RateLimit:       time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
	})
	p := poller.New(res.Client, d, res.Store, poller.Options{
		Interval:     cfg.PollInterval(),
		ErrorBackoff: cfg.ErrorBackoff(),
		Limit:        cfg.Polling.Limit,
	})
	return &App{Poller: p, Sender: out}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
