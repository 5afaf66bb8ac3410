package datasmith

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	loggerOnce sync.Once
	loggerMu   sync.RWMutex
	logger     *log.Logger
)

// Logger returns the package logger, creating a stderr logger at warn level
// on first use.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		if logger == nil {
			logger = log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "datasmith",
				Level:           log.WarnLevel,
			})
		}
	})
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	loggerOnce.Do(func() {})
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}
