package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Logger is the shared application logger. It is usable before
// InitLogger runs so that early startup errors are not lost.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
}

// InitLogger configures the shared logger. Verbosity maps to levels:
// negative values silence everything below errors, 0 is the default,
// 1 enables debug output and 2 trace output. When logDir is non-empty
// a run log is appended under it in addition to stderr.
func InitLogger(verbosity int, colors bool, logDir string) error {
	switch {
	case verbosity < 0:
		Logger.SetLevel(logrus.ErrorLevel)
	case verbosity == 0:
		Logger.SetLevel(logrus.InfoLevel)
	case verbosity == 1:
		Logger.SetLevel(logrus.DebugLevel)
	default:
		Logger.SetLevel(logrus.TraceLevel)
	}

	Logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:     colors,
		DisableColors:   !colors,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	if logDir == "" {
		return nil
	}

	dir := filepath.Join(logDir, ".logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, "redditrip.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	Logger.SetOutput(io.MultiWriter(os.Stderr, file))

	return nil
}
