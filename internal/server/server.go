// Package server exposes the analysis pipelines over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sec-rag-agent/internal/agent"
	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/types"
)

// orchestrator and answerer are the two pipelines the server fronts. Local
// interfaces keep handlers testable with in-memory fakes.
type orchestrator interface {
	Run(ctx context.Context, req agent.Request) (*types.AgentReport, error)
}

type answerer interface {
	Answer(ctx context.Context, query string, filters map[string]string, limit int) (string, []types.Passage, error)
	AnswerStream(ctx context.Context, query string, filters map[string]string, limit int, emit func(delta string) error) ([]types.Passage, error)
}

// Server wires the HTTP routes to the pipelines.
type Server struct {
	cfg      *store.Config
	agent    orchestrator
	rag      answerer
	searcher interfaces.Searcher
	engine   *gin.Engine
	http     *http.Server
}

func New(cfg *store.Config, orch orchestrator, rag answerer, searcher interfaces.Searcher) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(), cors(cfg.Server.CORSOrigins))

	s := &Server{
		cfg:      cfg,
		agent:    orch,
		rag:      rag,
		searcher: searcher,
		engine:   engine,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/agent", s.handleAgent)
	s.engine.POST("/search", s.handleSearch)
	s.engine.POST("/llm", s.handleLLM)
	s.engine.POST("/llm/stream", s.handleLLMStream)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until the listener fails. Blocking; run in a goroutine when
// pairing with Shutdown.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info(context.Background(), "HTTP server listening", "addr", s.cfg.Server.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
