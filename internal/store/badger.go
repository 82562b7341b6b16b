// Package store persists cases, tasks and audit entries in an embedded
// BadgerDB instance.
//
// Each entity is stored as a JSON record under its primary key, with
// secondary index keys (value-less) maintained in the same transaction as
// the record write, so a reader never observes a record without its indexes
// or the reverse.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type Config struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path     string
	InMemory bool

	// SyncWrites trades write latency for durability across crashes.
	SyncWrites bool

	// GCInterval is how often value log garbage collection runs. 0 disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64

	Logger *slog.Logger
}

func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func InMemoryConfig() Config {
	return Config{InMemory: true}
}

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
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// DB owns the Badger handle, the case-number sequence and the GC loop.
type DB struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger

	stopGC chan struct{}
	gcDone chan struct{}
}

const caseSequenceBandwidth = 100

func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
		logger = slog.Default()
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	seq, err := bdb.GetSequence(sequenceKey, caseSequenceBandwidth)
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("open case sequence: %w", err)
	}

	d := &DB{db: bdb, seq: seq, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		d.stopGC = make(chan struct{})
		d.gcDone = make(chan struct{})
		go d.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return d, nil
}

func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

func (d *DB) runGC(interval time.Duration, ratio float64) {
	defer close(d.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopGC:
			return
		case <-ticker.C:
			err := d.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				d.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

func (d *DB) Close() error {
	if d.stopGC != nil {
		close(d.stopGC)
		<-d.gcDone
	}
	if err := d.seq.Release(); err != nil {
		d.logger.Warn("release case sequence", slog.String("error", err.Error()))
	}
	return d.db.Close()
}

func (d *DB) Cases() *Cases { return &Cases{db: d} }
func (d *DB) Tasks() *Tasks { return &Tasks{db: d} }
func (d *DB) Audit() *AuditLog { return &AuditLog{db: d} }

// update runs fn in a read-write transaction and commits it. A cancelled
// context is only honoured before the transaction starts; once fn has run
// the commit always completes so a single record write is never torn.
func (d *DB) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := d.db.NewTransaction(true)
	defer txn.Discard()
	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

func (d *DB) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := d.db.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}
