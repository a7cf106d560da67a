// Package logging configures the process-wide logrus logger from the
// tracker configuration.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup applies the configured level and, in production, switches to JSON
// output so log shippers get structured records.
func Setup(logLevel, environment string) {
	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.ToLower(environment) == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
