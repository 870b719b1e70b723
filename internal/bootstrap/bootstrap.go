// Package bootstrap wires configuration into the engine for the commands.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/teatak/freqseg/config"
	"github.com/teatak/freqseg/dictionary"
	"github.com/teatak/freqseg/segmenter"
)

// DictionarySource returns the Source selected by cfg and a function that
// releases whatever the source holds open.
func DictionarySource(ctx context.Context, cfg *config.Config) (dictionary.Source, func() error, error) {
	switch cfg.Dictionary.Source {
	case config.SourcePostgres:
		db, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		src, err := dictionary.NewSQLSource(db, cfg.Dictionary.Table)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return src, db.Close, nil
	default:
		return dictionary.NewFileSource(cfg.Dictionary.Path), func() error { return nil }, nil
	}
}

// OpenPostgres opens a connection pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return db, nil
}

// NewSegmenter builds a Segmenter over the configured source and, when
// cfg.Dictionary.Preload is set, loads the dictionary before returning.
func NewSegmenter(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...segmenter.Option) (*segmenter.Segmenter, func() error, error) {
	src, closeFn, err := DictionarySource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]segmenter.Option{segmenter.WithLogger(logger)}, opts...)
	seg := segmenter.New(src, opts...)
	if cfg.Dictionary.Preload {
		if err := seg.Initialize(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return seg, closeFn, nil
}
