// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/docuflow/docuflow/pkg/persistence"
	"github.com/docuflow/docuflow/pkg/persistence/file"
	"github.com/docuflow/docuflow/pkg/persistence/postgresql"
	"github.com/docuflow/docuflow/pkg/persistence/redis"
)

// NewPersistence builds the persistence layer from a storage URL. The scheme
// selects the backend; anything unrecognized falls back to file storage.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

// WithRedisVariables keeps templates and executions on the base store but
// serves workflow variables from redis. The returned store closes both.
func WithRedisVariables(base persistence.Persistence, redisURL string, logger *slog.Logger) (persistence.Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := goredis.NewClient(opts)

	logger.Info("Using redis variable store", "addr", opts.Addr)

	return &variableOverride{
		Persistence: base,
		variables:   redis.NewVariableRepository(client),
		closeClient: client.Close,
	}, nil
}

type variableOverride struct {
	persistence.Persistence

	variables   persistence.VariableRepository
	closeClient func() error
}

func (p *variableOverride) VariableRepository() persistence.VariableRepository {
	return p.variables
}

func (p *variableOverride) Close(ctx context.Context) error {
	if err := p.closeClient(); err != nil {
		return err
	}

	return p.Persistence.Close(ctx)
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
