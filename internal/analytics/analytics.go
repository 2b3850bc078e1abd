// Package analytics wraps the append-only query log: best-effort
// logging from the recall/search handlers, a periodic prune ticker, and the
// summary backing GET /api/v1/analytics/queries.
package analytics

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hexmem/hexmem/internal/store"
)

// Logger records query activity and prunes it on a schedule.
type Logger struct {
	st        store.Store
	retention time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func New(st store.Store, retention time.Duration) *Logger {
	return &Logger{st: st, retention: retention, stopCh: make(chan struct{})}
}

// Log records one query entry. Failures are logged and swallowed: logging
// never fails the request it's attached to.
func (l *Logger) Log(ctx context.Context, e store.AnalyticsEntry) {
	if err := l.st.LogQuery(ctx, e); err != nil {
		log.Printf("analytics: log query failed: %v", err)
	}
}

// Summary returns the aggregate backing /api/v1/analytics/queries.
func (l *Logger) Summary(ctx context.Context) (store.AnalyticsSummary, error) {
	return l.st.Analytics(ctx)
}

// Start runs the periodic prune until ctx is cancelled or Stop is called.
func (l *Logger) Start(ctx context.Context, interval time.Duration) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("analytics: prune started, interval=%v, retention=%v", interval, l.retention)

	for {
		select {
		case <-ctx.Done():
			log.Println("analytics: prune stopping (context cancelled)")
			return
		case <-l.stopCh:
			log.Println("analytics: prune stopping (stop requested)")
			return
		case <-ticker.C:
			n, err := l.st.PruneAnalytics(ctx, time.Now().UTC().Add(-l.retention))
			if err != nil {
				log.Printf("analytics: prune failed: %v", err)
				continue
			}
			log.Printf("analytics: pruned %d entries older than %v", n, l.retention)
		}
	}
}

// Stop halts a running periodic prune.
func (l *Logger) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	close(l.stopCh)
	l.running = false
}
