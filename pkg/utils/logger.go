package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger. Debug builds a development logger with
// console output at debug level; otherwise a JSON production logger at info.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
