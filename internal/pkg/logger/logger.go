// internal/pkg/logger/logger.go
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/solara-commerce/solara-backend/internal/config"
)

var log = logrus.New()

// Init configures the process-wide logger from config
func Init(cfg *config.Config) {
	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

// Get returns the shared logger instance
func Get() *logrus.Logger {
	return log
}

// WithFields returns an entry with the given fields attached
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// WithError returns an entry with the error attached
func WithError(err error) *logrus.Entry {
	return log.WithError(err)
}
