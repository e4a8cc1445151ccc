// Package postgresql provides PostgreSQL persistence for templates,
// executions and variables.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/docuflow/docuflow/pkg/persistence"
	"github.com/docuflow/docuflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	templates      *TemplateRepository
	executions     *ExecutionRepository
	nodeExecutions *NodeExecutionRepository
	variables      *VariableRepository
}

// NewPersistence connects, migrates and wires the repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:             database,
		logger:         logger,
		templates:      &TemplateRepository{db: database},
		executions:     &ExecutionRepository{db: database},
		nodeExecutions: &NodeExecutionRepository{db: database},
		variables:      &VariableRepository{db: database},
	}, nil
}

// DB exposes the underlying pool so node factories (database_query) can share
// the connection.
func (p *Persistence) DB() *sql.DB {
	return p.db
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templates
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) NodeExecutionRepository() persistence.NodeExecutionRepository {
	return p.nodeExecutions
}

func (p *Persistence) VariableRepository() persistence.VariableRepository {
	return p.variables
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
