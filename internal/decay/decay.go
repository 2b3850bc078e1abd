// Package decay implements the background decay sweep: per
// (agent, type) policy resolution, the active→cooling and cooling→archived
// transitions, and a periodic ticker alongside an on-demand trigger.
package decay

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

// Stats summarizes one sweep's effect, optionally scoped to a single agent.
type Stats struct {
	ToCooling  int                     `json:"transitioned_to_cooling"`
	ToArchived int                     `json:"transitioned_to_archived"`
	Immune     int                     `json:"immune_items"`
	PerType    map[hexmem.ItemType]int `json:"-"`
}

// Engine runs decay sweeps over a Store on a ticker, and on demand.
type Engine struct {
	st                  store.Store
	coolingToArchiveAge time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func New(st store.Store, coolingToArchiveAge time.Duration) *Engine {
	return &Engine{st: st, coolingToArchiveAge: coolingToArchiveAge, stopCh: make(chan struct{})}
}

// Start runs the periodic sweep until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context, interval time.Duration) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("decay: sweep started, interval=%v", interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("decay: sweep stopping (context cancelled)")
			return
		case <-e.stopCh:
			log.Println("decay: sweep stopping (stop requested)")
			return
		case <-ticker.C:
			stats, err := e.Sweep(ctx, "")
			if err != nil {
				log.Printf("decay: scheduled sweep failed: %v", err)
				continue
			}
			log.Printf("decay: scheduled sweep done: cooling=%d archived=%d immune=%d",
				stats.ToCooling, stats.ToArchived, stats.Immune)
		}
	}
}

// Stop halts a running periodic sweep.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	close(e.stopCh)
	e.running = false
}

// Sweep runs one decay pass. With agentID empty, every agent is swept; the
// manual trigger at decay/sweep accepts an optional agent scope.
func (e *Engine) Sweep(ctx context.Context, agentID string) (Stats, error) {
	agentIDs := []string{agentID}
	if agentID == "" {
		agents, err := e.st.ListAgents(ctx)
		if err != nil {
			return Stats{}, fmt.Errorf("list agents: %w", err)
		}
		agentIDs = agentIDs[:0]
		for _, a := range agents {
			agentIDs = append(agentIDs, a.ID)
		}
	}

	total := Stats{PerType: map[hexmem.ItemType]int{}}
	for _, aid := range agentIDs {
		for _, t := range hexmem.AllItemTypes {
			policy, err := e.st.ResolvePolicy(ctx, aid, t)
			if err != nil {
				log.Printf("decay: no policy for agent=%s type=%s: %v", aid, t, err)
				continue
			}

			cooled, err := e.st.CoolStaleActive(ctx, aid, t, policy)
			if err != nil {
				log.Printf("decay: cool stale active failed agent=%s type=%s: %v", aid, t, err)
			} else {
				total.ToCooling += cooled
				total.PerType[t] += cooled
			}

			archived, err := e.st.ArchiveAgedCooling(ctx, aid, t, e.coolingToArchiveAge)
			if err != nil {
				log.Printf("decay: archive aged cooling failed agent=%s type=%s: %v", aid, t, err)
			} else {
				total.ToArchived += archived
			}

			immune, err := e.st.CountImmune(ctx, aid, t, policy.MinAccesses)
			if err != nil {
				log.Printf("decay: count immune failed agent=%s type=%s: %v", aid, t, err)
			} else {
				total.Immune += immune
			}
		}
	}
	return total, nil
}

// Status reports the current active/cooling/archived counts for one agent,
// backing GET /api/v1/decay/status.
func (e *Engine) Status(ctx context.Context, agentID string) (map[hexmem.ItemType]map[hexmem.DecayStatus]int, error) {
	return e.st.DecayStatusCounts(ctx, agentID)
}

// Revive restores a decayed item to active, used when a direct fetch or
// manual action touches it.
func (e *Engine) Revive(ctx context.Context, t hexmem.ItemType, id string) error {
	return e.st.Revive(ctx, t, id)
}
