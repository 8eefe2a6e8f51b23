// Package logging builds the command-line loggers.
package logging

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// New returns a timestamped logger writing to w at the named level. An unknown level
// is an error rather than a silent fallback to info.
func New(w io.Writer, prefix, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: want debug|info|warn|error|fatal", level)
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true, Prefix: prefix, Level: lvl}), nil
}
