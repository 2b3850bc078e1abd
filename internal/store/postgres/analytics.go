package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hexmem/hexmem/internal/store"
)

// LogQuery appends one entry to the query log, fire-and-forget from
// the caller's perspective.
func (s *Store) LogQuery(ctx context.Context, e store.AnalyticsEntry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal analytics metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_log (agent_id, endpoint, query_text, latency_ms, metadata)
		VALUES ($1, $2, $3, $4, $5)`, nullString(e.AgentID), e.Endpoint, e.QueryText, e.LatencyMS, meta)
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}
	return nil
}

// PruneAnalytics deletes query_log rows older than before, the 6-hourly
// maintenance sweep (default retention 30 days).
func (s *Store) PruneAnalytics(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM query_log WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune analytics: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Analytics summarizes query volume and latency for the
// /api/v1/analytics/queries endpoint.
func (s *Store) Analytics(ctx context.Context) (store.AnalyticsSummary, error) {
	var summary store.AnalyticsSummary
	summary.ByEndpoint = map[string]int{}

	err := s.db.QueryRowContext(ctx, `SELECT count(*), COALESCE(avg(latency_ms), 0) FROM query_log`).
		Scan(&summary.TotalQueries, &summary.AvgLatencyMS)
	if err != nil {
		return summary, fmt.Errorf("analytics totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT endpoint, count(*) FROM query_log GROUP BY endpoint`)
	if err != nil {
		return summary, fmt.Errorf("analytics by endpoint: %w", err)
	}
	for rows.Next() {
		var endpoint string
		var n int
		if err := rows.Scan(&endpoint, &n); err != nil {
			rows.Close()
			return summary, fmt.Errorf("scan analytics endpoint: %w", err)
		}
		summary.ByEndpoint[endpoint] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return summary, err
	}

	recent, err := s.db.QueryContext(ctx, `
		SELECT agent_id, endpoint, query_text, latency_ms, metadata, occurred_at
		FROM query_log ORDER BY occurred_at DESC LIMIT 50`)
	if err != nil {
		return summary, fmt.Errorf("analytics recent: %w", err)
	}
	defer recent.Close()
	for recent.Next() {
		var e store.AnalyticsEntry
		var agentID *string
		var meta []byte
		if err := recent.Scan(&agentID, &e.Endpoint, &e.QueryText, &e.LatencyMS, &meta, &e.OccurredAt); err != nil {
			return summary, fmt.Errorf("scan recent entry: %w", err)
		}
		if agentID != nil {
			e.AgentID = *agentID
		}
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return summary, fmt.Errorf("unmarshal entry metadata: %w", err)
		}
		summary.RecentEntries = append(summary.RecentEntries, e)
	}
	return summary, recent.Err()
}
