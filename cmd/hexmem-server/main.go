package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hexmem/hexmem/internal/analytics"
	"github.com/hexmem/hexmem/internal/apikeys"
	"github.com/hexmem/hexmem/internal/config"
	"github.com/hexmem/hexmem/internal/decay"
	"github.com/hexmem/hexmem/internal/dedup"
	"github.com/hexmem/hexmem/internal/embed"
	"github.com/hexmem/hexmem/internal/extract"
	"github.com/hexmem/hexmem/internal/graph"
	"github.com/hexmem/hexmem/internal/ingest"
	"github.com/hexmem/hexmem/internal/recall"
	"github.com/hexmem/hexmem/internal/server"
	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/internal/store/postgres"
	"github.com/hexmem/hexmem/internal/store/sqlite"
)

func main() {
	cfg := config.Load()

	st, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatalf("hexmem-server: storage: %v", err)
	}
	defer st.Close()

	if err := st.SeedDefaultPolicies(context.Background()); err != nil {
		log.Printf("hexmem-server: seed default decay policies: %v", err)
	}

	embedder := embed.New(cfg.Embed)
	extractor := extract.New(cfg.Extract)
	summarizer := extract.NewStubSummarizer()
	dd := dedup.New(st, embedder)

	pipeline := ingest.New(st, embedder, extractor, dd)
	planner := recall.New(st, embedder)
	graphSvc := graph.New(st)
	decayEngine := decay.New(st, cfg.Decay.CoolingToArchiveAge)
	analyticsLog := analytics.New(st, cfg.Decay.AnalyticsRetention)
	keys := apikeys.New(st)

	srv := server.New(server.Deps{
		Store:      st,
		Ingest:     pipeline,
		Recall:     planner,
		Graph:      graphSvc,
		Decay:      decayEngine,
		Analytics:  analyticsLog,
		Keys:       keys,
		Summarizer: summarizer,
		DevKey:     cfg.Security.DevKey,
		EmbedderOK: cfg.Embed.Provider != "stub",
		EmbedName:  embedder.Name(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go decayEngine.Start(ctx, cfg.Decay.SweepInterval)
	defer decayEngine.Stop()
	go analyticsLog.Start(ctx, cfg.Decay.AnalyticsPrune)
	defer analyticsLog.Stop()

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	log.Printf("hexmem-server: listening on %s (storage=%s embed=%s)", addr, cfg.Storage.Engine, embedder.Name())

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Println("hexmem-server: shutting down")
		cancel()
	}()

	if err := server.Run(ctx, addr, srv); err != nil {
		log.Fatalf("hexmem-server: %v", err)
	}
}

func openStore(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Engine {
	case "sqlite":
		return sqlite.Open(cfg.DSN, cfg.MigrationsDir)
	default:
		return postgres.Open(cfg.DSN, cfg.MigrationsDir)
	}
}

