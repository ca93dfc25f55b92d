package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger("production", "warn"))
	l := GetLogger()
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(-1)) // debug disabled at warn
	SyncLogger()

	require.NoError(t, InitLogger("development", ""))
	assert.True(t, GetLogger().Core().Enabled(-1))
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	assert.Error(t, InitLogger("development", "loud"))
}
