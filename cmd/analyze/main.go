// Package main provides a one-shot analysis CLI: analyze a single token
// and print the report to stdout, rendered or as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"coinclarity/internal/analyzer"
	"coinclarity/internal/dexscreener"
	"coinclarity/internal/domain"
	"coinclarity/internal/evm"
	"coinclarity/internal/explorer"
	"coinclarity/internal/orchestrator"
	"coinclarity/internal/render"
	"coinclarity/internal/storage/memory"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Parse flags
	chain := flag.String("chain", "ethereum", "Chain of the token (ethereum, base)")
	address := flag.String("address", "", "Token contract address (0x...)")
	rpcEndpoint := flag.String("rpc-endpoint", "", "JSON-RPC HTTP endpoint (defaults to ETH_RPC_ENDPOINT / BASE_RPC_ENDPOINT)")
	explorerURL := flag.String("explorer-url", "", "Explorer API base URL (defaults to Etherscan / Basescan)")
	explorerKey := flag.String("explorer-key", "", "Explorer API key (defaults to ETHERSCAN_API_KEY / BASESCAN_API_KEY)")
	dexScreenerURL := flag.String("dexscreener-url", dexscreener.DefaultBaseURL, "DexScreener API base URL")
	timeout := flag.Duration("timeout", orchestrator.DefaultJobBudget, "Analysis time budget")
	jsonOut := flag.Bool("json", false, "Print the raw report JSON instead of rendered output")
	verbose := flag.Bool("verbose", false, "Verbose pipeline logging to stderr")
	flag.Parse()

	// Validate flags
	if *address == "" {
		fmt.Fprintln(os.Stderr, "Error: --address is required")
		os.Exit(1)
	}

	token, err := domain.NewTokenIdentity(*chain, *address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *rpcEndpoint == "" {
		*rpcEndpoint = defaultRPCEndpoint(token.Chain)
	}
	if *rpcEndpoint == "" {
		fmt.Fprintf(os.Stderr, "Error: --rpc-endpoint is required (or set %s)\n", rpcEnvVar(token.Chain))
		os.Exit(1)
	}
	if *explorerURL == "" {
		*explorerURL = defaultExplorerURL(token.Chain)
	}
	if *explorerKey == "" {
		*explorerKey = defaultExplorerKey(token.Chain)
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "[analyze] ", log.LstdFlags)
	}

	// Wire a single-chain pipeline over in-memory stores
	rpc := evm.NewHTTPClient(*rpcEndpoint)
	exp := explorer.NewClient(*explorerURL, *explorerKey)
	market := dexscreener.NewClient(*dexScreenerURL)

	orch := orchestrator.New(orchestrator.Options{
		Contract:     analyzer.ContractMux{token.Chain: analyzer.NewContractAnalyzer(rpc, exp, logger)},
		Authority:    analyzer.AuthorityMux{token.Chain: analyzer.NewAuthorityClassifier(rpc, logger)},
		Liquidity:    analyzer.NewLiquidityAnalyzer(market, logger),
		Holders:      analyzer.HolderMux{token.Chain: analyzer.NewHolderAnalyzer(exp, logger)},
		Code:         analyzer.CodeMux{token.Chain: rpc},
		ReportStore:  memory.NewReportStore(),
		JobStore:     memory.NewJobStore(),
		ReportCache:  memory.NewReportCache(),
		ScoreHistory: memory.NewScoreHistoryStore(),
		Workers:      1,
		JobBudget:    *timeout,
		Logger:       logger,
		Verbose:      *verbose,
	})

	runCtx, stop := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		orch.Run(runCtx)
		close(runDone)
	}()
	defer func() {
		stop()
		<-runDone
	}()

	// Leave headroom over the job budget so the failure event arrives
	// before the CLI gives up.
	ctx, cancel := context.WithTimeout(context.Background(), *timeout+10*time.Second)
	defer cancel()

	// Subscribe before requesting so the terminal event cannot be missed
	events, unsubscribe := orch.Subscribe()
	defer unsubscribe()

	resp, err := orch.RequestAnalysis(ctx, token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	report := resp.Report
	if resp.Status == orchestrator.StatusProcessing {
		report, err = awaitReport(ctx, orch, token, resp.JobID, events)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := render.Report(os.Stdout, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering report: %v\n", err)
		os.Exit(1)
	}
}

// awaitReport waits for the job's terminal event and loads the report.
func awaitReport(ctx context.Context, orch *orchestrator.Orchestrator, token domain.TokenIdentity, jobID string, events <-chan orchestrator.JobEvent) (*domain.AnalysisReport, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("analysis timed out")
		case ev := <-events:
			if ev.JobID != jobID {
				continue
			}
			switch ev.State {
			case domain.JobCompleted:
				return orch.GetReport(ctx, token)
			case domain.JobFailed:
				return nil, fmt.Errorf("analysis failed: %s", ev.Error)
			}
		}
	}
}

// defaultRPCEndpoint resolves the per-chain RPC endpoint from the env.
func defaultRPCEndpoint(chain domain.Chain) string {
	return os.Getenv(rpcEnvVar(chain))
}

func rpcEnvVar(chain domain.Chain) string {
	switch chain {
	case domain.ChainBase:
		return "BASE_RPC_ENDPOINT"
	default:
		return "ETH_RPC_ENDPOINT"
	}
}

func defaultExplorerURL(chain domain.Chain) string {
	switch chain {
	case domain.ChainBase:
		return "https://api.basescan.org/api"
	default:
		return "https://api.etherscan.io/api"
	}
}

func defaultExplorerKey(chain domain.Chain) string {
	switch chain {
	case domain.ChainBase:
		return os.Getenv("BASESCAN_API_KEY")
	default:
		return os.Getenv("ETHERSCAN_API_KEY")
	}
}
