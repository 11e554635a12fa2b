package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options configures the pool backing the grant store and module registry.
type Options struct {
	DSN      string
	MaxConns int32
	// AppName is reported as application_name unless the DSN sets one.
	AppName string
}

// New opens a pool and pings it once.
func New(ctx context.Context, opts Options) (*pgxpool.Pool, error) {
	config, err := ParseConfig(opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}
	return pool, nil
}

// ParseConfig turns opts into a pool config without connecting.
func ParseConfig(opts Options) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.AppName != "" {
		if _, set := config.ConnConfig.RuntimeParams["application_name"]; !set {
			config.ConnConfig.RuntimeParams["application_name"] = opts.AppName
		}
	}
	return config, nil
}
