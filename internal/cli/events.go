package cli

import (
	"github.com/charmbracelet/log"
)

// logEvents implements cache.FetchEvents on top of the CLI logger. The
// cache core never owns a UI; this is the CLI's progress reporting.
type logEvents struct {
	logger *log.Logger
}

func (e *logEvents) Started(url string) {
	e.logger.Debug("downloading", "url", url)
}

func (e *logEvents) Progress(url string, bytes int64) {}

func (e *logEvents) Finished(url string) {
	e.logger.Debug("downloaded", "url", url)
}

func (e *logEvents) Failed(url string, err error) {
	e.logger.Warn("download failed", "url", url, "err", err)
}
