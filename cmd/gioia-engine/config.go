// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pdiddy/gioia-engine/internal/secrets"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

// setDefaults registers every configuration key with its default so that
// environment variables resolve even without a config file.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("llm.provider", string(d.LLM.Provider))
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.proxy_endpoint", d.LLM.ProxyEndpoint)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.requests_per_second", d.LLM.RequestsPerSecond)
	v.SetDefault("llm.burst", d.LLM.Burst)
	v.SetDefault("llm.prompts_file", d.LLM.PromptsFile)

	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.concurrency", d.Embedding.Concurrency)

	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.user_agent", d.Search.UserAgent)
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.enable_semantic_scholar", d.Search.EnableSemanticScholar)
	v.SetDefault("search.enable_openalex", d.Search.EnableOpenAlex)
	v.SetDefault("search.inter_backend_delay", d.Search.InterBackendDelay)
	v.SetDefault("search.recency_bias_window", d.Search.RecencyBiasWindow)

	v.SetDefault("acquisition.timeout", d.Acquisition.Timeout)
	v.SetDefault("acquisition.user_agent", d.Acquisition.UserAgent)
	v.SetDefault("acquisition.download_delay", d.Acquisition.DownloadDelay)
	v.SetDefault("acquisition.papers_dir", d.Acquisition.PapersDir)

	v.SetDefault("stages.coding_chunk_size", d.Stages.CodingChunkSize)
	v.SetDefault("stages.coding_chunk_overlap", d.Stages.CodingChunkOverlap)
	v.SetDefault("stages.focus_threshold", d.Stages.FocusThreshold)
	v.SetDefault("stages.max_focus_buckets", d.Stages.MaxFocusBuckets)
	v.SetDefault("stages.evidence_chunk_size", d.Stages.EvidenceChunkSize)
	v.SetDefault("stages.evidence_k", d.Stages.EvidenceK)
	v.SetDefault("stages.rank_k", d.Stages.RankK)
	v.SetDefault("stages.max_iterations", d.Stages.MaxIterations)

	v.SetDefault("store.dir", d.Store.Dir)
}

// configFrom reads the typed configuration from v and fills credentials
// from the loaded secrets. Keys in the config file win over secrets.
func configFrom(v *viper.Viper, sec map[string]string) types.Config {
	cfg := types.Config{
		LLM: types.LLMConfig{
			Provider:          types.Provider(v.GetString("llm.provider")),
			Model:             v.GetString("llm.model"),
			APIKey:            v.GetString("llm.api_key"),
			BaseURL:           v.GetString("llm.base_url"),
			ProxyEndpoint:     v.GetString("llm.proxy_endpoint"),
			ProxyKey:          v.GetString("llm.proxy_key"),
			Timeout:           v.GetDuration("llm.timeout"),
			RequestsPerSecond: v.GetFloat64("llm.requests_per_second"),
			Burst:             v.GetInt("llm.burst"),
			PromptsFile:       v.GetString("llm.prompts_file"),
		},
		Embedding: types.EmbeddingConfig{
			Model:       v.GetString("embedding.model"),
			BatchSize:   v.GetInt("embedding.batch_size"),
			Concurrency: v.GetInt("embedding.concurrency"),
		},
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("search.timeout"),
				UserAgent: v.GetString("search.user_agent"),
			},
			MaxResults:            v.GetInt("search.max_results"),
			EnableSemanticScholar: v.GetBool("search.enable_semantic_scholar"),
			EnableOpenAlex:        v.GetBool("search.enable_openalex"),
			SemanticScholarAPIKey: v.GetString("search.semantic_scholar_api_key"),
			OpenAlexEmail:         v.GetString("search.openalex_email"),
			InterBackendDelay:     v.GetDuration("search.inter_backend_delay"),
			RecencyBiasWindow:     v.GetDuration("search.recency_bias_window"),
		},
		Acquisition: types.AcquisitionConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("acquisition.timeout"),
				UserAgent: v.GetString("acquisition.user_agent"),
			},
			DownloadDelay: v.GetDuration("acquisition.download_delay"),
			PapersDir:     v.GetString("acquisition.papers_dir"),
		},
		Stages: types.StageConfig{
			CodingChunkSize:    v.GetInt("stages.coding_chunk_size"),
			CodingChunkOverlap: v.GetInt("stages.coding_chunk_overlap"),
			FocusThreshold:     v.GetInt("stages.focus_threshold"),
			MaxFocusBuckets:    v.GetInt("stages.max_focus_buckets"),
			EvidenceChunkSize:  v.GetInt("stages.evidence_chunk_size"),
			EvidenceK:          v.GetInt("stages.evidence_k"),
			RankK:              v.GetInt("stages.rank_k"),
			MaxIterations:      v.GetInt("stages.max_iterations"),
		},
		Store: types.StoreConfig{Dir: v.GetString("store.dir")},
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case types.ProviderAnthropic:
			cfg.LLM.APIKey = sec[secrets.AnthropicAPIKey]
		default:
			cfg.LLM.APIKey = sec[secrets.OpenAIAPIKey]
		}
	}
	if cfg.Acquisition.PapersDir == "" {
		cfg.Acquisition.PapersDir = filepath.Join(cfg.Store.Dir, "papers")
	}
	cfg.LLM.ProxyKey = fallback(cfg.LLM.ProxyKey, sec[secrets.HeliconeAPIKey])
	cfg.Search.SemanticScholarAPIKey = fallback(cfg.Search.SemanticScholarAPIKey, sec[secrets.SemanticScholarAPIKey])
	cfg.Search.OpenAlexEmail = fallback(cfg.Search.OpenAlexEmail, sec[secrets.OpenAlexEmail])
	return cfg
}

// embeddingKey returns the OpenAI key used for embeddings, which are
// served by OpenAI whatever the chat provider.
func embeddingKey(cfg types.Config, sec map[string]string) string {
	if cfg.LLM.Provider == types.ProviderOpenAI || cfg.LLM.Provider == "" {
		return cfg.LLM.APIKey
	}
	return sec[secrets.OpenAIAPIKey]
}

// fallback returns v if non-empty, or def otherwise.
func fallback(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// loadConfig returns the effective configuration for the current command.
func loadConfig() types.Config {
	return configFrom(viper.GetViper(), loadedSecrets)
}
