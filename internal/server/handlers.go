package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sec-rag-agent/internal/agent"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/retrieval"
	"sec-rag-agent/internal/types"
)

type agentRequest struct {
	Message        string `json:"message"`
	Ticker         string `json:"ticker"`
	IncludeDetails bool   `json:"include_details"`
}

type searchRequest struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters"`
	Limit   int               `json:"limit"`
}

type searchResponse struct {
	Query    string          `json:"query"`
	Passages []types.Passage `json:"results"`
	Count    int             `json:"count"`
}

type llmRequest struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters"`
	Limit   int               `json:"limit"`
}

type llmResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAgent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" && strings.TrimSpace(req.Ticker) == "" {
		writeBadRequest(c, "either message or ticker is required")
		return
	}

	report, err := s.agent.Run(c.Request.Context(), agent.Request{
		Ticker:         req.Ticker,
		Message:        req.Message,
		IncludeDetails: req.IncludeDetails,
	})
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Agent request failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeBadRequest(c, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.cfg.Retrieval.NewsLimit
	}

	passages, err := s.searcher.Search(c.Request.Context(), types.SearchQuery{
		Text:    req.Query,
		Filters: req.Filters,
		Limit:   req.Limit,
	})
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Search request failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, searchResponse{Query: req.Query, Passages: passages, Count: len(passages)})
}

func (s *Server) handleLLM(c *gin.Context) {
	var req llmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeBadRequest(c, "query is required")
		return
	}

	answer, passages, err := s.rag.Answer(c.Request.Context(), req.Query, req.Filters, req.Limit)
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "RAG request failed", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, llmResponse{Answer: answer, Sources: retrieval.SourceIDs(passages)})
}

// handleLLMStream answers over server-sent events: one "data:" line per text
// delta, then a final "event: done" carrying the source list.
func (s *Server) handleLLMStream(c *gin.Context) {
	var req llmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeBadRequest(c, "query is required")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, _ := c.Writer.(http.Flusher)
	emit := func(delta string) error {
		if _, err := fmt.Fprintf(c.Writer, "event: text_delta\ndata: %s\n\n", sseEscape(delta)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	passages, err := s.rag.AnswerStream(c.Request.Context(), req.Query, req.Filters, req.Limit, emit)
	if err != nil {
		// Headers are already out; signal the failure in-band.
		logger.ErrorWithErr(c.Request.Context(), "RAG stream failed", err)
		fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", sseEscape(err.Error()))
		if flusher != nil {
			flusher.Flush()
		}
		return
	}

	fmt.Fprintf(c.Writer, "event: stream_completed\ndata: %s\n\n", strings.Join(retrieval.SourceIDs(passages), ","))
	if flusher != nil {
		flusher.Flush()
	}
}

// sseEscape keeps multi-line deltas inside a single SSE data field.
func sseEscape(s string) string {
	return strings.ReplaceAll(s, "\n", "\ndata: ")
}
