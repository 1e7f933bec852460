package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewParsesLevel(t *testing.T) {
	log, err := New(" DEBUG ")
	require.NoError(t, err)
	require.True(t, log.Desugar().Core().Enabled(zap.DebugLevel))

	log, err = New("warn")
	require.NoError(t, err)
	require.False(t, log.Desugar().Core().Enabled(zap.InfoLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud")
	require.Error(t, err)
}
