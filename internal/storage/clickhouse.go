package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/radiusdt/budget-intel/internal/models"
)

// chUnknownTable is the ClickHouse UNKNOWN_TABLE error code.
const chUnknownTable = 60

// ClickHouseStore implements MetricStore over a ClickHouse replica of the
// meta_* tables.
type ClickHouseStore struct {
	conn driver.Conn
	log  *zap.Logger
}

// NewClickHouseStore creates a ClickHouse-backed metric store.
func NewClickHouseStore(conn driver.Conn, log *zap.Logger) *ClickHouseStore {
	return &ClickHouseStore{conn: conn, log: log}
}

func (s *ClickHouseStore) DateBounds(ctx context.Context, store string, level models.Level) (models.DateBounds, error) {
	b, err := buildBoundsQuery(dialectClickHouse, store, level)
	if err != nil {
		return models.DateBounds{}, err
	}

	var minDate, maxDate *string
	if err := s.conn.QueryRow(ctx, b.String(), b.args...).Scan(&minDate, &maxDate); err != nil {
		return models.DateBounds{}, chError("failed to probe date bounds", err)
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

func (s *ClickHouseStore) ListObjects(ctx context.Context, q ObjectQuery) ([]models.ObjectNode, error) {
	b := buildObjectsQuery(dialectClickHouse, q)

	rows, err := s.conn.Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, chError("failed to list objects", err)
	}
	defer s.closeRows(rows, "objects")

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
		return nil, chError("failed to iterate objects", err)
	}
	return objects, nil
}

func (s *ClickHouseStore) ListMetrics(ctx context.Context, q MetricQuery) ([]models.MetricRow, error) {
	b, cols, err := buildMetricsQuery(dialectClickHouse, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, chError("failed to list "+string(q.Level)+" metrics", err)
	}
	defer s.closeRows(rows, string(q.Level)+" metrics")

	out := make([]models.MetricRow, 0)
	for rows.Next() {
		var r models.MetricRow
		if err := rows.Scan(scanTargets(cols, &r)...); err != nil {
			return nil, fmt.Errorf("failed to scan %s metric row: %w", q.Level, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, chError("failed to iterate "+string(q.Level)+" metrics", err)
	}
	return out, nil
}

func (s *ClickHouseStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *ClickHouseStore) closeRows(rows driver.Rows, what string) {
	if err := rows.Close(); err != nil {
		s.log.Error("Failed to close rows", zap.String("query", what), zap.Error(err))
	}
}

// chError wraps err, mapping UNKNOWN_TABLE to ErrTableMissing.
func chError(msg string, err error) error {
	var exc *clickhouse.Exception
	if errors.As(err, &exc) && exc.Code == chUnknownTable {
		return fmt.Errorf("%s: %w: %s", msg, ErrTableMissing, exc.Message)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
