// Package logger builds the structured logger shared by the CLI and the store.
package logger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const prefix = "chatkeep"

// ParseLevel maps a config value to a log level. Empty means info; "warning"
// is accepted as an alias for warn.
func ParseLevel(level string) (log.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "":
		return log.InfoLevel, nil
	case "warning":
		return log.WarnLevel, nil
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q: supported levels are debug, info, warn, error", level)
	}
	return lvl, nil
}

func New(level string, w io.Writer) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	}), nil
}
