package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var (
	level = new(slog.LevelVar)

	logger = newLogger(os.Stdout)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(
		slog.NewTextHandler(
			w, &slog.HandlerOptions{
				Level: level,
			},
		),
	)
}

// SetOutput redirects all log output, e.g. to stderr when stdout carries a report.
func SetOutput(w io.Writer) {
	logger = newLogger(w)
}

func SetDebug(enable bool) {
	if enable {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

func Info(msg string) {
	logger.Info(msg)
}

func Infof(msg string, args ...any) {
	logger.Info(fmt.Sprintf(msg, args...))
}

func Warnf(msg string, args ...any) {
	logger.Warn(fmt.Sprintf(msg, args...))
}

func Error(msg string, err error) {
	logger.Error(msg, "error", err)
}

func Fatalf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func Debug(msg string) {
	logger.Debug(msg)
}

func Debugf(msg string, args ...any) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	logger.Debug(fmt.Sprintf(msg, args...))
}
