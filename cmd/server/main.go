package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sec-rag-agent/internal/agent"
	"sec-rag-agent/internal/analysis"
	"sec-rag-agent/internal/analysis/analysisobs"
	"sec-rag-agent/internal/api"
	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/llm/claude"
	"sec-rag-agent/internal/llm/llmobs"
	"sec-rag-agent/internal/llm/noop"
	"sec-rag-agent/internal/llm/openai"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/prompt"
	"sec-rag-agent/internal/rag"
	"sec-rag-agent/internal/resolver"
	"sec-rag-agent/internal/retrieval"
	"sec-rag-agent/internal/search/qdrant"
	"sec-rag-agent/internal/server"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/trace"

	"github.com/joho/godotenv"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := store.LoadConfig(configPath)
	must(err)

	must(logger.Init())
	must(trace.Init("sec-rag-agent", "1.0.0"))

	ctx := context.Background()
	srv, err := buildServer(cfg)
	must(err)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		must(err)
	case <-sigc:
		logger.Info(ctx, "Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(ctx, "HTTP shutdown failed", err)
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(ctx, "Trace shutdown failed", err)
	}
}

// buildServer wires the pipelines together: index, retrieval, model client,
// analysis streams, orchestrator, RAG, HTTP.
func buildServer(cfg *store.Config) (*server.Server, error) {
	searcher := qdrant.NewSearcher(cfg)
	retriever := retrieval.NewDocumentRetriever(searcher)
	prompts := prompt.NewManager(cfg.Paths.PromptsDir)

	plans, err := store.LoadQueryPlans(cfg.Paths.Queries)
	if err != nil {
		return nil, err
	}
	mappings, err := store.LoadTickerMappings(cfg.Paths.TickerMappings)
	if err != nil {
		return nil, err
	}

	completer := llmobs.Wrap(buildCompleter(cfg))

	streams := analysisobs.Wrap(analysis.NewEngine(retriever, completer, prompts, plans, cfg))
	synth := agent.NewSynthesizer(completer, prompts, cfg)
	tickers := resolver.NewTickerResolver(mappings, completer, prompts, cfg.LLM.ExtractionMaxTokens)
	orch := agent.NewOrchestrator(tickers, streams, synth, cfg.RequestTimeout())
	ragSvc := rag.NewService(searcher, completer, prompts, cfg)

	return server.New(cfg, orch, ragSvc, searcher), nil
}

func buildCompleter(cfg *store.Config) interfaces.Completer {
	limiter := api.PerMinute(cfg.LLM.RequestsPerMinute)
	switch cfg.LLM.Provider {
	case "OPENAI":
		return openai.NewClient(cfg, limiter)
	case "CLAUDE":
		return claude.NewClient(cfg, limiter)
	default:
		logger.Warn(context.Background(), "No model provider configured, using canned responses",
			"provider", cfg.LLM.Provider)
		return noop.NewCompleter("")
	}
}
