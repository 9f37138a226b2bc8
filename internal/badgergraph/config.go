package badgergraph

import (
	"fmt"
	"log/slog"
)

// Config holds configuration for a badger-backed graph store.
type Config struct {
	// Path is the directory for badger files. Required unless InMemory is
	// true.
	Path string

	// InMemory keeps everything in RAM. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives badger's internal log lines. If nil, badger's logging
	// is disabled.
	Logger *slog.Logger

	// IDBandwidth is how many node ids are leased from the id sequence at a
	// time. Default: 256.
	IDBandwidth uint64
}

// DefaultConfig returns defaults for a persistent store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		SyncWrites:  true,
		IDBandwidth: 256,
	}
}

// InMemoryConfig returns configuration for tests: no disk I/O, no fsync.
func InMemoryConfig() Config {
	return Config{
		InMemory:    true,
		IDBandwidth: 256,
	}
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
