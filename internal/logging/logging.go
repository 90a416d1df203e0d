// Package logging builds the process logger.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// New returns a logger writing JSON in production and text in development.
// Unknown levels fall back to info.
func New(level string, development bool) *log.Logger {
	return NewWithOutput(os.Stdout, level, development)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(w io.Writer, level string, development bool) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)
	if development {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
