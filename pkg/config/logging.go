package config

import (
	logger "github.com/sirupsen/logrus"
)

// InitLogger configures the standard logrus logger. Long-running workers log
// JSON, everything else uses the text formatter with full timestamps.
func InitLogger(level string, json bool) {
	if json {
		logger.SetFormatter(&logger.JSONFormatter{})
	} else {
		logger.SetFormatter(&logger.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", level)
		lvl = logger.InfoLevel
	}
	logger.SetLevel(lvl)
}
