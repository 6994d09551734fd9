// Package main provides the token analysis server:
// - HTTP API: submit tokens, fetch reports and score history, stream job events
// - Worker pool: contract, authority, liquidity and holder analysis
// - Storage: PostgreSQL reports/jobs, ClickHouse score history, Redis cache
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coinclarity/internal/analyzer"
	"coinclarity/internal/dexscreener"
	"coinclarity/internal/domain"
	"coinclarity/internal/evm"
	"coinclarity/internal/explorer"
	"coinclarity/internal/httpapi"
	"coinclarity/internal/orchestrator"
	"coinclarity/internal/storage"
	chstore "coinclarity/internal/storage/clickhouse"
	"coinclarity/internal/storage/memory"
	"coinclarity/internal/storage/migrations"
	pgstore "coinclarity/internal/storage/postgres"
	"coinclarity/internal/storage/redis"
)

// chainConfig is the provider stack for one chain.
type chainConfig struct {
	rpcEndpoint string
	explorerURL string
	explorerKey string
}

// analysisStores holds the storage backends the orchestrator needs.
type analysisStores struct {
	reports storage.ReportStore
	jobs    storage.JobStore
	cache   storage.ReportCache
	scores  storage.ScoreHistoryStore
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	ethRPC := flag.String("eth-rpc-endpoint", os.Getenv("ETH_RPC_ENDPOINT"), "Ethereum JSON-RPC HTTP endpoint")
	baseRPC := flag.String("base-rpc-endpoint", os.Getenv("BASE_RPC_ENDPOINT"), "Base JSON-RPC HTTP endpoint")
	etherscanURL := flag.String("etherscan-url", "https://api.etherscan.io/api", "Etherscan API base URL")
	etherscanKey := flag.String("etherscan-key", os.Getenv("ETHERSCAN_API_KEY"), "Etherscan API key (holder and verification data degrade without one)")
	basescanURL := flag.String("basescan-url", "https://api.basescan.org/api", "Basescan API base URL")
	basescanKey := flag.String("basescan-key", os.Getenv("BASESCAN_API_KEY"), "Basescan API key (holder and verification data degrade without one)")
	dexScreenerURL := flag.String("dexscreener-url", dexscreener.DefaultBaseURL, "DexScreener API base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisURL := flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis connection URL")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse/Redis")
	addr := flag.String("addr", ":8080", "HTTP API listen address")
	workers := flag.Int("workers", orchestrator.DefaultWorkers, "Number of analysis workers")
	queueSize := flag.Int("queue-size", orchestrator.DefaultQueueSize, "Analysis queue capacity")
	cacheTTL := flag.Duration("cache-ttl", orchestrator.DefaultCacheTTL, "Report freshness window")
	jobBudget := flag.Duration("job-budget", orchestrator.DefaultJobBudget, "Per-job time budget")
	verbose := flag.Bool("verbose", false, "Verbose orchestrator logging")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *ethRPC == "" && *baseRPC == "" {
		logger.Fatal("--eth-rpc-endpoint or --base-rpc-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "" || *redisURL == "") {
		logger.Fatal("--postgres-dsn, --clickhouse-dsn and --redis-url are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *redisURL, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Resolve per-chain provider stacks
	chains := map[domain.Chain]chainConfig{}
	if *ethRPC != "" {
		chains[domain.ChainEthereum] = chainConfig{
			rpcEndpoint: *ethRPC,
			explorerURL: *etherscanURL,
			explorerKey: *etherscanKey,
		}
	}
	if *baseRPC != "" {
		chains[domain.ChainBase] = chainConfig{
			rpcEndpoint: *baseRPC,
			explorerURL: *basescanURL,
			explorerKey: *basescanKey,
		}
	}
	for chain, cc := range chains {
		if cc.explorerKey == "" {
			logger.Printf("No explorer API key for %s, holder and verification data will be unavailable", chain)
		}
	}
	logger.Printf("Analyzing chains: %v", chainNames(chains))

	analyzers := buildAnalyzers(chains, *dexScreenerURL)

	// Create orchestrator
	orch := orchestrator.New(orchestrator.Options{
		Contract:     analyzers.contracts,
		Authority:    analyzers.authorities,
		Liquidity:    analyzers.liquidity,
		Holders:      analyzers.holders,
		Code:         analyzers.code,
		ReportStore:  stores.reports,
		JobStore:     stores.jobs,
		ReportCache:  stores.cache,
		ScoreHistory: stores.scores,
		Workers:      *workers,
		QueueSize:    *queueSize,
		CacheTTL:     *cacheTTL,
		JobBudget:    *jobBudget,
		Logger:       log.New(os.Stdout, "[orchestrator] ", log.LstdFlags|log.Lshortfile),
		Verbose:      *verbose,
	})

	api := httpapi.NewServer(orch, log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile))
	httpSrv := &http.Server{Addr: *addr, Handler: api.Routes()}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go func() {
		logger.Printf("HTTP API listening on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Run workers and janitor until the context is canceled
	orch.Run(ctx)

	// Stop accepting requests, let in-flight responses finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}
	close(done)

	logger.Println("Shutdown complete")
}

// analyzerSet is the per-chain analyzer muxes plus the shared liquidity
// analyzer.
type analyzerSet struct {
	contracts   analyzer.ContractMux
	authorities analyzer.AuthorityMux
	liquidity   *analyzer.LiquidityAnalyzer
	holders     analyzer.HolderMux
	code        analyzer.CodeMux
}

// buildAnalyzers wires one provider stack per configured chain. The
// DexScreener API is chain-aware, so a single liquidity analyzer covers
// every chain.
func buildAnalyzers(chains map[domain.Chain]chainConfig, dexScreenerURL string) *analyzerSet {
	logger := log.New(os.Stdout, "[analyzer] ", log.LstdFlags|log.Lshortfile)

	set := &analyzerSet{
		contracts:   analyzer.ContractMux{},
		authorities: analyzer.AuthorityMux{},
		holders:     analyzer.HolderMux{},
		code:        analyzer.CodeMux{},
	}

	for chain, cc := range chains {
		rpc := evm.NewHTTPClient(cc.rpcEndpoint)

		var source analyzer.SourceProvider
		var holderSource analyzer.HolderProvider
		if cc.explorerURL != "" {
			exp := explorer.NewClient(cc.explorerURL, cc.explorerKey)
			source = exp
			holderSource = exp
		}

		set.contracts[chain] = analyzer.NewContractAnalyzer(rpc, source, logger)
		set.authorities[chain] = analyzer.NewAuthorityClassifier(rpc, logger)
		set.holders[chain] = analyzer.NewHolderAnalyzer(holderSource, logger)
		set.code[chain] = rpc
	}

	market := dexscreener.NewClient(dexScreenerURL)
	set.liquidity = analyzer.NewLiquidityAnalyzer(market, logger)

	return set
}

// chainNames returns the configured chain names in stable order.
func chainNames(chains map[domain.Chain]chainConfig) []string {
	names := make([]string, 0, len(chains))
	for chain := range chains {
		names = append(names, string(chain))
	}
	sort.Strings(names)
	return names
}

// createStores creates the storage backends, running migrations on the
// durable ones.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN, redisURL string, useMemory bool) (*analysisStores, func(), error) {
	if useMemory {
		stores := &analysisStores{
			reports: memory.NewReportStore(),
			jobs:    memory.NewJobStore(),
			cache:   memory.NewReportCache(),
			scores:  memory.NewScoreHistoryStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse
	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	// Redis
	cache, err := redis.NewCache(ctx, redisURL)
	if err != nil {
		conn.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	stores := &analysisStores{
		reports: pgstore.NewReportStore(pool),
		jobs:    pgstore.NewJobStore(pool),
		cache:   cache,
		scores:  chstore.NewScoreHistoryStore(conn),
	}

	cleanup := func() {
		cache.Close()
		conn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}
