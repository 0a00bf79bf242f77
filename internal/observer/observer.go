package observer

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
)

// Observer receives everything a run wants to tell the user. It is passed
// explicitly to each component so that concurrent runs never share output
// hooks.
type Observer interface {
	Notice(level Level, msg string)
	Progress(key string, done, total int64)
}

func Noticef(obs Observer, level Level, format string, args ...any) {
	obs.Notice(level, fmt.Sprintf(format, args...))
}

// NewLogger returns an Observer writing through a logrus logger.
func NewLogger(logger *log.Logger) Observer {
	return &logObserver{
		logger: logger,
	}
}

type logObserver struct {
	logger *log.Logger
}

func (lo *logObserver) Notice(level Level, msg string) {
	switch level {
	case Debug:
		lo.logger.Debug(msg)
	case Warn:
		lo.logger.Warn(msg)
	default:
		lo.logger.Info(msg)
	}
}

func (lo *logObserver) Progress(key string, done, total int64) {
	lo.logger.WithFields(log.Fields{
		"key":  key,
		"done": humanize.Bytes(uint64(done)),
		"size": humanize.Bytes(uint64(total)),
	}).Debug("upload progress")
}

// Nop discards everything.
type Nop struct{}

func (Nop) Notice(Level, string)          {}
func (Nop) Progress(string, int64, int64) {}
