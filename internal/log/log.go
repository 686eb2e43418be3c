// Package log configures the process-wide logrus logger and tags the lines
// of each pipeline run with a run ID.
package log

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Setup configures level, format and output. Debug lowers the level to
// Debug; otherwise only warnings and errors are written.
func Setup(debug, json bool) {
	SetupTo(os.Stderr, debug, json)
}

// SetupTo is Setup with an explicit writer.
func SetupTo(w io.Writer, debug, json bool) {
	logrus.SetOutput(w)

	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: !debug,
		})
	}

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// NewRun returns a logger entry carrying a fresh run ID.
func NewRun(op string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"run": uuid.NewString(),
		"op":  op,
	})
}

func Debugf(format string, args ...interface{}) {
	logrus.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	logrus.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	logrus.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	logrus.Errorf(format, args...)
}
