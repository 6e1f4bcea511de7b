package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/orderdesk/internal/seeder"
)

func TestCommandTree(t *testing.T) {
	root := NewRootCommand()

	for _, path := range [][]string{
		{"start"},
		{"run"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"seed"},
		{"worker", "run"},
	} {
		cmd, rest, err := root.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Empty(t, rest, "%v", path)
		assert.NotNil(t, cmd.RunE, "%v", path)
	}
}

func TestFlagDefaults(t *testing.T) {
	root := NewRootCommand()

	seed, _, err := root.Find([]string{"seed"})
	require.NoError(t, err)
	count, err := seed.Flags().GetInt("count")
	require.NoError(t, err)
	assert.Equal(t, seeder.DefaultOrderCount, count)

	down, _, err := root.Find([]string{"migrate", "down"})
	require.NoError(t, err)
	steps, err := down.Flags().GetInt("steps")
	require.NoError(t, err)
	assert.Equal(t, 1, steps)
}
