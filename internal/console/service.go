// Package console runs ad-hoc SQL for the administrator on a connection pool
// of its own. Nothing in the portal services reaches it.
package console

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type txStarter interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Config bounds what a single console query may do.
type Config struct {
	Timeout  time.Duration
	MaxRows  int
	ReadOnly bool
}

// Result is the outcome of one query.
type Result struct {
	Rows      []map[string]interface{}
	Truncated bool
}

// Service executes console queries.
type Service struct {
	db     txStarter
	cfg    Config
	logger *zap.Logger
}

// NewService constructs Service.
func NewService(db txStarter, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 1000
	}
	return &Service{db: db, cfg: cfg, logger: logger}
}

// Run executes query inside a transaction. Read-only consoles always roll
// back; writable consoles commit when the statement succeeds.
func (s *Service) Run(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "No valid SQL query provided.")
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	opts := pgx.TxOptions{}
	if s.cfg.ReadOnly {
		opts.AccessMode = pgx.ReadOnly
	}
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, s.queryError(query, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	start := time.Now()
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, s.queryError(query, err)
	}
	result, err := collect(rows, s.cfg.MaxRows)
	if err != nil {
		return nil, s.queryError(query, err)
	}

	if !s.cfg.ReadOnly {
		if err := tx.Commit(ctx); err != nil {
			return nil, s.queryError(query, err)
		}
	}
	s.logger.Info("console query",
		zap.Int("rows", len(result.Rows)),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// queryError surfaces the database message verbatim.
func (s *Service) queryError(query string, err error) error {
	s.logger.Warn("console query failed", zap.String("query", query), zap.Error(err))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, pgErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "query timed out")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, err.Error())
}

func collect(rows pgx.Rows, limit int) (*Result, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &Result{Rows: []map[string]interface{}{}}
	for rows.Next() {
		if len(result.Rows) == limit {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			row[field.Name] = jsonValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// jsonValue rewrites driver values that would not encode readably.
func jsonValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case [16]byte:
		return uuid.UUID(typed).String()
	case []byte:
		return string(typed)
	default:
		return v
	}
}
