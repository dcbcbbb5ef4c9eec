package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConfigureLogging configures the global logrus logger from the logging
// section. Output goes to stderr so stdio transports keep stdout clean;
// setting a file switches to size-rotated log files.
func ConfigureLogging(config LoggingConfig) {
	level, err := logrus.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	switch strings.ToLower(config.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if config.File != "" {
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
		})
		return
	}
	logrus.SetOutput(os.Stderr)
}
