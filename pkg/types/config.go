package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "gioia-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the paper search document source.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of results to return (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnableSemanticScholar controls whether the Semantic Scholar backend is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar"`

	// EnableOpenAlex controls whether the OpenAlex backend is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// OpenAlexEmail joins the OpenAlex polite pool when set.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// InterBackendDelay is the delay between API calls to different backends (default 1s).
	InterBackendDelay time.Duration `json:"inter_backend_delay" yaml:"inter_backend_delay"`

	// RecencyBiasWindow is the time window for boosting recent papers (default 2 years).
	RecencyBiasWindow time.Duration `json:"recency_bias_window" yaml:"recency_bias_window"`
}

// AcquisitionConfig holds settings for fetching full texts of documents.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// PapersDir holds the downloaded PDFs (default "<store dir>/papers").
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`
}

// Provider names an LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// LLMConfig holds settings for the LLM gateway.
type LLMConfig struct {
	// Provider selects the backend: openai or anthropic.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "gpt-3.5-turbo").
	Model string `json:"model" yaml:"model"`

	// APIKey is the provider credential. An empty key is a caller error.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// ProxyEndpoint and ProxyKey route calls through an observability proxy
	// such as Helicone. Both must be set for the proxy to be used.
	ProxyEndpoint string `json:"proxy_endpoint,omitempty" yaml:"proxy_endpoint,omitempty"`
	ProxyKey      string `json:"proxy_key,omitempty" yaml:"proxy_key,omitempty"`

	// Timeout bounds every single provider call (default 2m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// RequestsPerSecond throttles provider calls (0 disables throttling).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the token bucket size for throttling (default 5).
	Burst int `json:"burst" yaml:"burst"`

	// PromptsFile is an optional YAML file overriding stage instructions.
	PromptsFile string `json:"prompts_file,omitempty" yaml:"prompts_file,omitempty"`
}

// UsesProxy reports whether calls go through the observability proxy.
func (c LLMConfig) UsesProxy() bool {
	return c.ProxyEndpoint != "" && c.ProxyKey != ""
}

// EmbeddingConfig holds settings for the embedding provider.
type EmbeddingConfig struct {
	// Model is the embedding model (default "text-embedding-3-small").
	Model string `json:"model" yaml:"model"`

	// BatchSize is the number of texts sent per embedding request (default 64).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Concurrency bounds parallel embedding requests (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// StageConfig tunes chunking and fan-out parameters of the analysis stages.
type StageConfig struct {
	// CodingChunkSize and CodingChunkOverlap size the chunks sent to the
	// first-order coding stage, in runes.
	CodingChunkSize    int `json:"coding_chunk_size" yaml:"coding_chunk_size"`
	CodingChunkOverlap int `json:"coding_chunk_overlap" yaml:"coding_chunk_overlap"`

	// FocusThreshold is the serialized code-list length above which
	// second-order coding is split into several calls.
	FocusThreshold int `json:"focus_threshold" yaml:"focus_threshold"`

	// MaxFocusBuckets caps the focus codes requested per call.
	MaxFocusBuckets int `json:"max_focus_buckets" yaml:"max_focus_buckets"`

	// EvidenceChunkSize and EvidenceK control interrelationship retrieval.
	EvidenceChunkSize int `json:"evidence_chunk_size" yaml:"evidence_chunk_size"`
	EvidenceK         int `json:"evidence_k" yaml:"evidence_k"`

	// RankK is the number of chunks retrieved when ranking papers.
	RankK int `json:"rank_k" yaml:"rank_k"`

	// MaxIterations bounds the critique and reconstruction loop (0 = unbounded).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
}

// StoreConfig holds settings for the session store.
type StoreConfig struct {
	// Dir is the base directory for the database and exports (default ".gioia").
	Dir string `json:"dir" yaml:"dir"`
}

// Config groups all component configurations.
type Config struct {
	LLM         LLMConfig         `json:"llm" yaml:"llm"`
	Embedding   EmbeddingConfig   `json:"embedding" yaml:"embedding"`
	Search      SearchConfig      `json:"search" yaml:"search"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition"`
	Stages      StageConfig       `json:"stages" yaml:"stages"`
	Store       StoreConfig       `json:"store" yaml:"store"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
			Model:    "gpt-3.5-turbo",
			Timeout:  2 * time.Minute,
			Burst:    5,
		},
		Embedding: EmbeddingConfig{
			Model:       "text-embedding-3-small",
			BatchSize:   64,
			Concurrency: 4,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "gioia-engine/0.1",
			},
			MaxResults:            20,
			EnableSemanticScholar: true,
			EnableOpenAlex:        true,
			InterBackendDelay:     time.Second,
			RecencyBiasWindow:     2 * 365 * 24 * time.Hour,
		},
		Acquisition: AcquisitionConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   2 * time.Minute,
				UserAgent: "gioia-engine/0.1",
			},
			DownloadDelay: time.Second,
		},
		Stages: StageConfig{
			CodingChunkSize:    8000,
			CodingChunkOverlap: 200,
			FocusThreshold:     10000,
			MaxFocusBuckets:    10,
			EvidenceChunkSize:  1000,
			EvidenceK:          4,
			RankK:              15,
		},
		Store: StoreConfig{Dir: ".gioia"},
	}
}
