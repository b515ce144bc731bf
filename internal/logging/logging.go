// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Setup configures logrus output and level. Debug mode lowers the level
// to DebugLevel; otherwise InfoLevel. If logDir is non-empty and
// writable, log lines are mirrored to quotecraft.log inside it.
func Setup(debug bool, logDir string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	if logDir == "" {
		return
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		logrus.WithError(err).Warn("log directory unavailable, console only")
		return
	}
	f, err := os.OpenFile(filepath.Join(logDir, "quotecraft.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logrus.WithError(err).Warn("log file unavailable, console only")
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, f))
}
