// Package postgres persists run outputs into PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/squadrank/internal/adapters/tables"
	"github.com/okian/squadrank/pkg/logger"
	"github.com/okian/squadrank/pkg/metrics"
)

// maxParams is the PostgreSQL bind parameter limit per statement.
const maxParams = 65535

const defaultBatchSize = 500

// Sentinel kinds for sink errors.
var (
	ErrNoDSN     = errors.New("postgres dsn is empty")
	ErrNilExecer = errors.New("postgres db is nil")
)

// Execer runs a single statement.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DB is the subset of a pgx pool or connection the sink needs. A run is
// written inside one transaction.
type DB interface {
	Execer
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Option applies a configuration option to the Sink.
type Option func(*Sink)

// WithSchema qualifies every table with schema.
func WithSchema(schema string) Option {
	return func(s *Sink) {
		s.schema = strings.TrimSpace(schema)
	}
}

// WithBatchSize sets the maximum rows per INSERT statement.
func WithBatchSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the sink logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// Sink writes output tables keyed by run id.
type Sink struct {
	db        DB
	schema    string
	batchSize int
	log       logger.Logger
}

// Connect opens a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrNoDSN
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// NewSink returns a Sink over db.
func NewSink(db DB, opts ...Option) (*Sink, error) {
	if db == nil {
		return nil, ErrNilExecer
	}
	s := &Sink{db: db, batchSize: defaultBatchSize, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// table returns the quoted, schema-qualified name of an output table.
func (s *Sink) table(name string) string {
	if s.schema == "" {
		return pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{s.schema, name}.Sanitize()
}

// EnsureSchema creates the output tables if they do not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if s.schema != "" {
		if _, err := s.db.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{s.schema}.Sanitize()); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	for _, t := range tableDDL {
		if _, err := s.db.Exec(ctx, fmt.Sprintf(t.ddl, s.table(t.name))); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
	}
	return nil
}

// WriteRun inserts every output table of a run in one transaction. Either
// all tables of the run are persisted or none are.
func (s *Sink) WriteRun(ctx context.Context, runID uuid.UUID, out tables.Outputs) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("postgres", "begin")
		return fmt.Errorf("begin run %s: %w", runID, err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback(ctx) }()

	batches := rowsOf(runID, out)
	for _, t := range batches {
		if err := s.insert(ctx, tx, t.name, t.cols, t.rows); err != nil {
			metrics.RecordErrorByComponent("postgres", "insert")
			return err
		}
		s.log.Debug(ctx, "rows staged", logger.String("table", t.name), logger.Int("rows", len(t.rows)))
	}
	if err := tx.Commit(ctx); err != nil {
		metrics.RecordErrorByComponent("postgres", "commit")
		return fmt.Errorf("commit run %s: %w", runID, err)
	}
	for _, t := range batches {
		metrics.RecordRowsWritten("pg_"+t.name, len(t.rows))
	}
	return nil
}

// insert writes rows in multi-VALUES statements of at most batchSize rows.
func (s *Sink) insert(ctx context.Context, db Execer, name string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	per := s.batchSize
	if limit := maxParams / len(cols); per > limit {
		per = limit
	}

	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		chunk := rows[start:end]

		var sb strings.Builder
		fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", s.table(name), strings.Join(cols, ", "))
		vals := make([]any, 0, len(chunk)*len(cols))
		for i, r := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for j := range cols {
				if j > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "$%d", i*len(cols)+j+1)
			}
			sb.WriteByte(')')
			vals = append(vals, r...)
		}

		if _, err := db.Exec(ctx, sb.String(), vals...); err != nil {
			return fmt.Errorf("insert %s rows %d-%d: %w", name, start, end, err)
		}
	}
	return nil
}
