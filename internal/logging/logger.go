// Package logging configures logrus loggers for the server and tools.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Init configures the logrus standard logger and returns it, so packages that
// log through the logrus package functions share the same level and format.
func Init(level, format string) *logrus.Logger {
	logger := logrus.StandardLogger()
	configure(logger, level, format, os.Stdout)
	return logger
}

// New builds a standalone logger writing to stdout.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	configure(logger, level, format, out)
	return logger
}

// Component returns an entry tagged with the emitting component name.
func Component(logger logrus.FieldLogger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// Unknown levels fall back to info; any format other than "json" is text.
func configure(logger *logrus.Logger, level, format string, out io.Writer) {
	logger.SetOutput(out)

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if strings.ToLower(format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat})
	}
}
