package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr                  string   `yaml:"addr"`
		RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
		CORSOrigins           []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Qdrant struct {
		URL            string `yaml:"url"`
		Collection     string `yaml:"collection"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		PrefetchLimit  int    `yaml:"prefetch_limit"`
		DenseModel     string `yaml:"dense_model"`
		SparseModel    string `yaml:"sparse_model"`
		LateModel      string `yaml:"late_model"`
		DenseVector    string `yaml:"dense_vector"`
		SparseVector   string `yaml:"sparse_vector"`
		LateVector     string `yaml:"late_vector"`
	} `yaml:"qdrant"`
	LLM struct {
		Provider            string  `yaml:"provider"`
		BaseURL             string  `yaml:"base_url"`
		Model               string  `yaml:"model"`
		Temperature         float32 `yaml:"temperature"`
		MaxTokens           int     `yaml:"max_tokens"`
		ExtractionMaxTokens int     `yaml:"extraction_max_tokens"`
		RequestsPerMinute   int     `yaml:"requests_per_minute"`
	} `yaml:"llm"`
	Retrieval struct {
		DocumentLimit   int `yaml:"document_limit"`
		NewsLimit       int `yaml:"news_limit"`
		MaxContextChars int `yaml:"max_context_chars"`
	} `yaml:"retrieval"`
	Paths struct {
		PromptsDir     string `yaml:"prompts_dir"`
		Queries        string `yaml:"queries"`
		TickerMappings string `yaml:"ticker_mappings"`
	} `yaml:"paths"`
}

// RequestTimeout is the wall-clock budget for one /agent request. The paired
// frontend assumes ~60s typical and 120s ceiling.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

func (c *Config) QdrantTimeout() time.Duration {
	return time.Duration(c.Qdrant.TimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "OPENAI", "CLAUDE", "NONE":
	default:
		return fmt.Errorf("invalid llm.provider '%s': must be 'OPENAI', 'CLAUDE', or 'NONE'", c.LLM.Provider)
	}
	if c.Qdrant.URL == "" {
		return fmt.Errorf("qdrant.url cannot be empty")
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant.collection cannot be empty")
	}
	if c.Retrieval.DocumentLimit <= 0 {
		return fmt.Errorf("retrieval.document_limit must be positive, got %d", c.Retrieval.DocumentLimit)
	}
	if c.Retrieval.NewsLimit <= 0 {
		return fmt.Errorf("retrieval.news_limit must be positive, got %d", c.Retrieval.NewsLimit)
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be positive, got %d", c.Server.RequestTimeoutSeconds)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.RequestTimeoutSeconds == 0 {
		c.Server.RequestTimeoutSeconds = 120
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	if c.Qdrant.URL == "" {
		c.Qdrant.URL = "http://localhost:6333"
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "documents"
	}
	if c.Qdrant.TimeoutSeconds == 0 {
		c.Qdrant.TimeoutSeconds = 60
	}
	if c.Qdrant.PrefetchLimit == 0 {
		c.Qdrant.PrefetchLimit = 25
	}
	if c.Qdrant.DenseModel == "" {
		c.Qdrant.DenseModel = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Qdrant.SparseModel == "" {
		c.Qdrant.SparseModel = "Qdrant/bm25"
	}
	if c.Qdrant.LateModel == "" {
		c.Qdrant.LateModel = "colbert-ir/colbertv2.0"
	}
	if c.Qdrant.DenseVector == "" {
		c.Qdrant.DenseVector = "dense"
	}
	if c.Qdrant.SparseVector == "" {
		c.Qdrant.SparseVector = "sparse"
	}
	if c.Qdrant.LateVector == "" {
		c.Qdrant.LateVector = "colbertv2.0"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "NONE"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.ExtractionMaxTokens == 0 {
		c.LLM.ExtractionMaxTokens = 64
	}
	if c.Retrieval.DocumentLimit == 0 {
		c.Retrieval.DocumentLimit = 3
	}
	if c.Retrieval.NewsLimit == 0 {
		c.Retrieval.NewsLimit = 10
	}
	if c.Retrieval.MaxContextChars == 0 {
		c.Retrieval.MaxContextChars = 15000
	}
	if c.Paths.PromptsDir == "" {
		c.Paths.PromptsDir = "prompts"
	}
	if c.Paths.Queries == "" {
		c.Paths.Queries = "config/queries.yaml"
	}
	if c.Paths.TickerMappings == "" {
		c.Paths.TickerMappings = "config/ticker_mappings.yaml"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
