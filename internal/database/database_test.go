package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/database"
)

func TestOpenRejectsBadInput(t *testing.T) {
	_, err := database.Open(config.Database{Driver: "oracle"}, "dsn")
	assert.Error(t, err)

	_, err = database.Open(config.Database{Driver: "sqlite"}, "")
	assert.Error(t, err)
}

func TestNewSharesPoolWithoutReplica(t *testing.T) {
	var cfg config.Config
	cfg.Database = config.Database{
		Driver:       "sqlite",
		WriterDSN:    "file:conns?mode=memory&cache=shared",
		MaxOpenConns: 2,
	}
	cfg.Database.ReaderDSN = cfg.Database.WriterDSN

	lc := fxtest.NewLifecycle(t)
	conns, err := database.New(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, conns.Writer, conns.Reader)

	lc.RequireStart()
	var one int
	require.NoError(t, conns.Reader.NewSelect().ColumnExpr("1").Scan(context.Background(), &one))
	assert.Equal(t, 1, one)
	lc.RequireStop()
}

func TestNewOpensReplica(t *testing.T) {
	var cfg config.Config
	cfg.Database = config.Database{
		Driver:    "sqlite",
		WriterDSN: "file:primary?mode=memory&cache=shared",
		ReaderDSN: "file:replica?mode=memory&cache=shared",
	}

	lc := fxtest.NewLifecycle(t)
	conns, err := database.New(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotSame(t, conns.Writer, conns.Reader)

	lc.RequireStart()
	lc.RequireStop()
}
