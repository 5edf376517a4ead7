package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerLevels(t *testing.T) {
	tests := []struct {
		verbosity int
		want      logrus.Level
	}{
		{-1, logrus.ErrorLevel},
		{0, logrus.InfoLevel},
		{1, logrus.DebugLevel},
		{2, logrus.TraceLevel},
		{5, logrus.TraceLevel},
	}
	for _, tt := range tests {
		require.NoError(t, InitLogger(tt.verbosity, false, ""))
		assert.Equal(t, tt.want, Logger.GetLevel(), "verbosity %d", tt.verbosity)
	}
}
