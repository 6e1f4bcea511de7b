package logger

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/orderdesk/internal/config"
)

func TestBuildLevels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"":      zapcore.InfoLevel,
		"loud":  zapcore.InfoLevel,
	}
	for level, want := range cases {
		t.Run(level, func(t *testing.T) {
			for _, encoding := range []string{"json", "console"} {
				log, err := Build(config.Observability{ServiceName: "orderdesk", LogLevel: level, LogEncoding: encoding})
				require.NoError(t, err)
				assert.True(t, log.Core().Enabled(want))
				if want > zapcore.DebugLevel {
					assert.False(t, log.Core().Enabled(want-1))
				}
			}
		})
	}
}

func TestIgnoreTTYSyncError(t *testing.T) {
	assert.NoError(t, ignoreTTYSyncError(nil))
	assert.NoError(t, ignoreTTYSyncError(fmt.Errorf("sync /dev/stderr: %w", syscall.EINVAL)))
	assert.NoError(t, ignoreTTYSyncError(syscall.ENOTTY))

	disk := errors.New("disk full")
	assert.ErrorIs(t, ignoreTTYSyncError(disk), disk)
}
