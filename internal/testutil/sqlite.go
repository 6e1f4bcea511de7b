// Package testutil provides a migrated in-memory database for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/database"
	"github.com/Additional-Code/orderdesk/internal/migration"
)

// NewSQLite opens a private in-memory SQLite database, applies all
// migrations and closes it when the test ends.
func NewSQLite(t *testing.T) *database.Connections {
	t.Helper()

	cfg := config.Config{
		Database: config.Database{
			Driver:       "sqlite",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.Database.WriterDSN = dsn
	cfg.Database.ReaderDSN = dsn

	db, err := database.Open(cfg.Database, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	conns := &database.Connections{Writer: db, Reader: db}

	mig, err := migration.New(cfg, conns, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, mig.Up(context.Background()))

	return conns
}
