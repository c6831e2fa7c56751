// File: internal/log/log.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Library-wide structured logger. Level is taken from DEVMEM_LOGLEVEL;
// the default keeps the allocator hot path quiet.

package log

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.Formatter = &logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	}
	switch strings.ToLower(os.Getenv("DEVMEM_LOGLEVEL")) {
	case "error":
		log.Level = logrus.ErrorLevel
	case "info":
		log.Level = logrus.InfoLevel
	case "debug":
		log.Level = logrus.DebugLevel
	default:
		log.Level = logrus.WarnLevel
	}
}

// Get returns the shared logger instance.
func Get() *logrus.Logger {
	return log
}

// WithComponent returns an entry tagged with the originating component.
func WithComponent(name string) *logrus.Entry {
	return log.WithField("component", name)
}
