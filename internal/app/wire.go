// Package app builds the process dependency graph from config. Both binaries use it so
// the API and the CLI dial through identical stores, gates and providers.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/config"
	"outreach-dialer/internal/dialer"
	"outreach-dialer/internal/dnc"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/pkg/utils"

	"github.com/redis/go-redis/v9"
)

type Deps struct {
	Provider telephony.Provider
	Calls    calls.ReadWriter
	DNC      dnc.List
	Audit    *audit.Service
	Dialer   *dialer.Dialer

	// DB and Redis are nil unless a configured store needs them.
	DB    *sql.DB
	Redis *redis.Client
}

// Build opens the backing stores named in cfg and wires the dialer.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Deps, error) {
	if log == nil {
		log = slog.Default()
	}
	d := &Deps{}

	if cfg.NeedsPostgres() {
		db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("postgres init: %w", err)
		}
		d.DB = db
	}
	if cfg.NeedsRedis() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("redis init: %w", err)
		}
		d.Redis = rdb
	}

	if err := d.wire(cfg, log); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Deps) wire(cfg config.Config, log *slog.Logger) error {
	provider, err := telephony.New(telephony.Settings{
		Provider: cfg.Telephony.Provider,
		Twilio: telephony.TwilioConfig{
			AccountSID:    cfg.Twilio.AccountSID,
			AuthToken:     cfg.Twilio.AuthToken,
			FromNumber:    cfg.Twilio.FromNumber,
			PublicBaseURL: cfg.Telephony.PublicBaseURL,
		},
		Vapi: telephony.VapiConfig{
			APIKey:        cfg.Vapi.APIKey,
			BaseURL:       cfg.Vapi.BaseURL,
			PhoneNumberID: cfg.Vapi.PhoneNumberID,
			Timeout:       cfg.Vapi.Timeout,
		},
	}, log)
	if err != nil {
		return err
	}
	d.Provider = provider

	switch cfg.Stores.Calls {
	case "postgres":
		d.Calls = calls.NewPostgresStore(d.DB)
		d.Audit = audit.NewService(audit.NewPostgresRepo(d.DB))
	default:
		d.Calls = calls.NewMemoryRepo()
		d.Audit = audit.NewService(audit.NewMemoryRepo())
	}

	switch cfg.Stores.DNC {
	case "postgres":
		d.DNC = dnc.NewPostgresList(d.DB)
	case "redis":
		d.DNC = dnc.NewRedisList(d.Redis, cfg.Stores.DNCRedisKey)
	default:
		d.DNC = dnc.NewMemoryList()
	}

	opts := dialer.Options{
		MaxConsecutiveFailures: cfg.Dialer.MaxConsecutiveFailures,
		MaxDelay:               cfg.Dialer.MaxDelay,
		Auditor:                d.Audit,
		Logger:                 log,
	}
	if cfg.Dialer.MaxConcurrentBatches > 0 {
		limiter, err := dialer.NewRedisLimiter(d.Redis, cfg.Dialer.MaxConcurrentBatches, cfg.Dialer.BatchTTL)
		if err != nil {
			return err
		}
		opts.Limiter = limiter
	}
	d.Dialer = dialer.New(d.Provider, d.Calls, d.DNC, opts)
	return nil
}

// Ready pings whatever backing stores are open.
func (d *Deps) Ready(ctx context.Context) error {
	var errs []error
	if d.DB != nil {
		errs = append(errs, utils.HealthCheck(ctx, d.DB, 0))
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Ping(ctx).Err())
	}
	return errors.Join(errs...)
}

func (d *Deps) Close() {
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}
