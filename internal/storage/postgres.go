package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiusdt/budget-intel/internal/models"
)

// pgUndefinedTable is SQLSTATE 42P01.
const pgUndefinedTable = "42P01"

// PostgresStore implements MetricStore using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) DateBounds(ctx context.Context, store string, level models.Level) (models.DateBounds, error) {
	b, err := buildBoundsQuery(dialectPostgres, store, level)
	if err != nil {
		return models.DateBounds{}, err
	}

	var minDate, maxDate *string
	if err := s.pool.QueryRow(ctx, b.String(), b.args...).Scan(&minDate, &maxDate); err != nil {
		return models.DateBounds{}, pgError("failed to probe date bounds", err)
	}

	var bounds models.DateBounds
	if minDate != nil {
		bounds.Min = *minDate
	}
	if maxDate != nil {
		bounds.Max = *maxDate
	}
	return bounds, nil
}

func (s *PostgresStore) ListObjects(ctx context.Context, q ObjectQuery) ([]models.ObjectNode, error) {
	b := buildObjectsQuery(dialectPostgres, q)

	rows, err := s.pool.Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, pgError("failed to list objects", err)
	}
	defer rows.Close()

	objects := make([]models.ObjectNode, 0)
	for rows.Next() {
		var o models.ObjectNode
		var objType string
		if err := rows.Scan(objectTargets(&o, &objType)...); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		o.ObjectType = models.Level(objType)
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("failed to iterate objects", err)
	}
	return objects, nil
}

func (s *PostgresStore) ListMetrics(ctx context.Context, q MetricQuery) ([]models.MetricRow, error) {
	b, cols, err := buildMetricsQuery(dialectPostgres, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, pgError("failed to list "+string(q.Level)+" metrics", err)
	}
	defer rows.Close()

	out := make([]models.MetricRow, 0)
	for rows.Next() {
		var r models.MetricRow
		if err := rows.Scan(scanTargets(cols, &r)...); err != nil {
			return nil, fmt.Errorf("failed to scan %s metric row: %w", q.Level, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("failed to iterate "+string(q.Level)+" metrics", err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// pgError wraps err, mapping an undefined table to ErrTableMissing.
func pgError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%s: %w: %s", msg, ErrTableMissing, pgErr.Message)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
