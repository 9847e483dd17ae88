// Package querylog persists an audit trail of processed queries in SQLite
// via bun. Recording is best-effort; a logging failure never fails the
// query that produced it.
package querylog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/zhang-liz/Enterprise-rag-system/internal/usecase/query"
)

type Store struct {
	db *bun.DB
}

// NewStore opens (or creates) the SQLite database at path and ensures the
// query_log table exists.
func NewStore(path string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open query log at %s: %w", path, err)
	}

	// WAL mode so concurrent request handlers do not serialize on writes.
	if _, err := sqldb.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	store := &Store{db: db}
	ctx := context.Background()
	if _, err := db.NewCreateTable().Model((*LoggedQuery)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create query_log table: %w", err)
	}

	return store, nil
}

// Record implements query.Recorder.
func (s *Store) Record(ctx context.Context, rec query.QueryRecord) error {
	row := &LoggedQuery{
		RequestID:  rec.RequestID,
		Query:      rec.Query,
		QueryType:  rec.QueryType,
		Confidence: rec.Confidence,
		NumSources: rec.NumSources,
		LatencyMs:  rec.LatencyMs,
		Warning:    rec.Warning,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to record query %s: %w", rec.RequestID, err)
	}
	return nil
}

// Statistics aggregates the log: totals, averages and the per-type
// breakdown.
func (s *Store) Statistics(ctx context.Context) (map[string]any, error) {
	total, err := s.db.NewSelect().Model((*LoggedQuery)(nil)).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("query log count failed: %w", err)
	}

	stats := map[string]any{
		"total_queries": total,
	}
	if total == 0 {
		return stats, nil
	}

	var aggregates struct {
		AvgConfidence float64 `bun:"avg_confidence"`
		AvgLatencyMs  float64 `bun:"avg_latency_ms"`
		NumWarnings   int64   `bun:"num_warnings"`
	}
	err = s.db.NewSelect().Model((*LoggedQuery)(nil)).
		ColumnExpr("avg(confidence) AS avg_confidence").
		ColumnExpr("avg(latency_ms) AS avg_latency_ms").
		ColumnExpr("count(*) FILTER (WHERE warning != '') AS num_warnings").
		Scan(ctx, &aggregates)
	if err != nil {
		return nil, fmt.Errorf("query log aggregation failed: %w", err)
	}
	stats["avg_confidence"] = aggregates.AvgConfidence
	stats["avg_latency_ms"] = aggregates.AvgLatencyMs
	stats["num_warnings"] = aggregates.NumWarnings

	var perType []struct {
		QueryType string `bun:"query_type"`
		Count     int64  `bun:"cnt"`
	}
	err = s.db.NewSelect().Model((*LoggedQuery)(nil)).
		ColumnExpr("query_type").
		ColumnExpr("count(*) AS cnt").
		GroupExpr("query_type").
		Scan(ctx, &perType)
	if err != nil {
		return nil, fmt.Errorf("query log type breakdown failed: %w", err)
	}
	types := make(map[string]int64, len(perType))
	for _, row := range perType {
		types[row.QueryType] = row.Count
	}
	stats["query_types"] = types

	return stats, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
