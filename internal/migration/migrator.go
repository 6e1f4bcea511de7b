package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/db/migrations"
	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/database"
)

// Migrator applies the embedded SQL migrations with goose.
type Migrator struct {
	db     *bun.DB
	logger *zap.Logger
}

// New configures goose for the database driver and the embedded migrations.
// goose keeps this configuration in package state.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	dialect, err := gooseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return nil, err
	}
	goose.SetBaseFS(migrations.FS)

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: conns.Writer, logger: logger}, nil
}

// Version reports the current schema version, 0 when nothing is applied.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return goose.GetDBVersionContext(ctx, m.db.DB)
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	err := goose.UpContext(ctx, m.db.DB, migrations.Dir)
	if done, err := m.settle(err, "no migrations to apply"); done {
		return err
	}
	m.logger.Info("migrations applied")
	return nil
}

// Down rolls back steps migrations (at least one), or all of them.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if all {
		err := goose.DownToContext(ctx, m.db.DB, migrations.Dir, 0)
		if done, err := m.settle(err, "no migrations to roll back"); done {
			return err
		}
		m.logger.Info("migrations rolled back", zap.String("mode", "all"))
		return nil
	}

	steps = max(steps, 1)
	for i := 0; i < steps; i++ {
		err := goose.DownContext(ctx, m.db.DB, migrations.Dir)
		if done, err := m.settle(err, "no migrations to roll back"); done {
			return err
		}
	}
	m.logger.Info("migrations rolled back", zap.Int("steps", steps))
	return nil
}

// settle reports whether the caller should stop, and with which error.
// Running out of migrations is not an error.
func (m *Migrator) settle(err error, nothingMsg string) (bool, error) {
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, goose.ErrNoNextVersion),
		errors.Is(err, goose.ErrNoMigrationFiles),
		errors.Is(err, goose.ErrNoCurrentVersion),
		strings.Contains(err.Error(), "no migration"):
		m.logger.Info(nothingMsg)
		return true, nil
	default:
		return true, err
	}
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case "postgres":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported goose dialect for driver %s", driver)
	}
}
