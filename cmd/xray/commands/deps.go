package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/wonny/xray/internal/adapters"
	"github.com/wonny/xray/internal/aggregate"
	"github.com/wonny/xray/internal/community"
	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/internal/decompose"
	"github.com/wonny/xray/internal/enrich"
	"github.com/wonny/xray/internal/external/finnhub"
	"github.com/wonny/xray/internal/external/wikidata"
	"github.com/wonny/xray/internal/external/yahoo"
	"github.com/wonny/xray/internal/holdings"
	"github.com/wonny/xray/internal/pipeline"
	"github.com/wonny/xray/internal/resolve"
	"github.com/wonny/xray/internal/store"
	"github.com/wonny/xray/pkg/config"
	"github.com/wonny/xray/pkg/database"
	"github.com/wonny/xray/pkg/logger"
	"github.com/wonny/xray/pkg/redis"
)

// deps holds the wired pipeline components shared by all commands.
// Wiring happens in exactly one place so every command runs the same
// tier chains.
type deps struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
	rdb *redis.Client

	positions     *store.PositionRepository
	identifiers   *store.IdentifierRepository
	holdingsCache *store.HoldingsRepository
	community     contracts.CommunityService

	resolver     *resolve.Resolver
	decomposer   *decompose.Decomposer
	enricher     *enrich.Enricher
	orchestrator *pipeline.Orchestrator

	writeback *resolve.Writeback
}

// initDeps loads configuration and wires every pipeline component.
// progress may be nil.
func initDeps(progress contracts.ProgressFunc) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := store.Migrate(context.Background(), db.Pool); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	positions := store.NewPositionRepository(db.Pool)
	identifiers := store.NewIdentifierRepository(db.Pool)
	holdingsCache := store.NewHoldingsRepository(db.Pool)
	negative := store.NewNegativeCache(rdb, log)

	// A typed nil inside the interface would defeat the nil checks in
	// the tier chains, hence the explicit guards.
	var communityService contracts.CommunityService
	if c := community.New(cfg.Community, log); c != nil {
		communityService = c
	}

	var limiter *redis.RateLimiter
	if rdb.Enabled() {
		limiter = redis.NewRateLimiter(rdb, "")
	}

	// Ranked external resolution tiers
	var apis []contracts.ResolutionAPI
	apis = append(apis, wikidata.New(log))
	finnhubClient := finnhub.New(cfg.Finnhub, limiter, log)
	if finnhubClient != nil {
		apis = append(apis, finnhubClient)
	}
	apis = append(apis, yahoo.New(log))

	manualIdentifiers := resolve.LoadManualTable(
		filepath.Join(cfg.DataDir, "manual_identifiers.json"), log)

	writeback := resolve.NewWriteback(identifiers, communityService, log)

	resolver := resolve.New(
		manualIdentifiers,
		identifiers,
		communityService,
		apis,
		negative,
		writeback,
		resolve.Options{
			LowWeightThreshold: cfg.Pipeline.LowWeightThreshold,
			Contribute:         cfg.Community.ContributeEnabled,
		},
		log,
	)

	decomposer := decompose.New(
		holdingsCache,
		communityService,
		adapters.NewRegistry(log),
		holdings.NewManualStore(cfg.DataDir, log),
		resolver,
		decompose.Options{
			CacheMaxAge:        cfg.Pipeline.HoldingsCacheMaxAge,
			MaxConcurrentFunds: cfg.Pipeline.MaxConcurrentFunds,
			Contribute:         cfg.Community.ContributeEnabled,
		},
		log,
	)

	var metadataAPIs []contracts.MetadataAPI
	if m := finnhubClient.Metadata(); m != nil {
		metadataAPIs = append(metadataAPIs, m)
	}

	enricher := enrich.New(identifiers, communityService, metadataAPIs, log)

	orchestrator := pipeline.New(
		positions,
		decomposer,
		enricher,
		aggregate.New(log),
		pipeline.NewReportWriter(cfg.DataDir, log),
		pipeline.Options{
			BaseCurrency:  cfg.Pipeline.BaseCurrency,
			Progress:      progress,
			ResolverStats: resolver.Stats,
		},
		log,
	)

	return &deps{
		cfg:           cfg,
		log:           log,
		db:            db,
		rdb:           rdb,
		positions:     positions,
		identifiers:   identifiers,
		holdingsCache: holdingsCache,
		community:     communityService,
		resolver:      resolver,
		decomposer:    decomposer,
		enricher:      enricher,
		orchestrator:  orchestrator,
		writeback:     writeback,
	}, nil
}

// Close flushes the write-back queue and releases connections
func (d *deps) Close() {
	d.writeback.Close()
	d.rdb.Close()
	d.db.Close()
}
