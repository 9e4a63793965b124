// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package modeling implements the theory-building stages that follow the
// aggregate dimensions: theory brainstorming, concept pairing, evidence
// backed interrelationship discovery, model construction, naming,
// visualization, and critique.
package modeling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/gioia-engine/internal/embedding"
	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

// Token caps for the single-call stages.
const (
	theoriesMaxTokens     = 2000
	tuplesMaxTokens       = 1000
	constructionMaxTokens = 1500
	nameMaxTokens         = 50
	diagramMaxTokens      = 1000
	critiqueMaxTokens     = 1000

	// MinTuples and MaxTuples bound the concept pairs asked for.
	MinTuples = 10
	MaxTuples = 20
)

// Modeler runs the theory and model stages against one gateway and one
// embedding provider.
type Modeler struct {
	Gateway  llm.Gateway
	Embedder embedding.Embedder
	Prompts  llm.Prompts
	Logger   *slog.Logger

	// EvidenceChunkSize and EvidenceK control interrelationship retrieval.
	EvidenceChunkSize int
	EvidenceK         int

	// IndexOptions are passed to every evidence index.
	IndexOptions []embedding.Option
}

// NewModeler returns a Modeler tuned by cfg.
func NewModeler(g llm.Gateway, e embedding.Embedder, prompts llm.Prompts, cfg types.StageConfig, logger *slog.Logger) *Modeler {
	m := &Modeler{
		Gateway:           g,
		Embedder:          e,
		Prompts:           prompts,
		Logger:            logger,
		EvidenceChunkSize: cfg.EvidenceChunkSize,
		EvidenceK:         cfg.EvidenceK,
	}
	if m.EvidenceChunkSize <= 0 {
		m.EvidenceChunkSize = DefaultEvidenceChunkSize
	}
	if m.EvidenceK <= 0 {
		m.EvidenceK = DefaultEvidenceK
	}
	if m.Logger == nil {
		m.Logger = slog.Default()
	}
	return m
}

type theoriesResponse struct {
	ApplicableTheories []types.ApplicableTheory `json:"applicableTheories"`
}

// BrainstormTheories suggests established theories that could frame the
// aggregate dimensions of state.
func (m *Modeler) BrainstormTheories(ctx context.Context, state types.ModelState) ([]types.ApplicableTheory, error) {
	system, err := llm.Render(m.Prompts.Theories, struct{ Remarks string }{focusOf(state)})
	if err != nil {
		return nil, err
	}
	raw, err := m.Gateway.Complete(ctx, llm.Request{
		System:    system,
		User:      "Aggregate dimensions and their themes:\n" + state.FormatDimensions(),
		MaxTokens: theoriesMaxTokens,
		Schema:    llm.SchemaTheories,
	})
	if err != nil {
		return nil, fmt.Errorf("brainstorming theories: %w", err)
	}
	resp, err := llm.Decode[theoriesResponse](raw)
	if err != nil {
		m.Logger.Warn("discarding unparsable theories", "error", err)
		return []types.ApplicableTheory{}, fmt.Errorf("brainstorming theories: %w", joinEmpty(err))
	}

	theories := make([]types.ApplicableTheory, 0, len(resp.ApplicableTheories))
	for _, t := range resp.ApplicableTheories {
		t.Theory = strings.TrimSpace(t.Theory)
		if t.Theory == "" {
			continue
		}
		theories = append(theories, t)
	}
	if len(theories) == 0 {
		return theories, fmt.Errorf("brainstorming theories: %w", llm.ErrEmptyResult)
	}
	return theories, nil
}

type tuplesResponse struct {
	ConceptTuples [][]string `json:"conceptTuples"`
}

// ConceptTuples proposes pairs of concepts, drawn from the dimensions and
// themes, whose relationship is worth investigating. Malformed pairs are
// dropped and duplicates removed.
func (m *Modeler) ConceptTuples(ctx context.Context, state types.ModelState) ([]types.ConceptTuple, error) {
	system, err := llm.Render(m.Prompts.ConceptTuples, struct {
		Min, Max int
		Remarks  string
	}{MinTuples, MaxTuples, focusOf(state)})
	if err != nil {
		return nil, err
	}
	raw, err := m.Gateway.Complete(ctx, llm.Request{
		System:    system,
		User:      "Aggregate dimensions and their themes:\n" + state.FormatDimensions(),
		MaxTokens: tuplesMaxTokens,
		Schema:    llm.SchemaConceptTuples,
	})
	if err != nil {
		return nil, fmt.Errorf("proposing concept tuples: %w", err)
	}
	resp, err := llm.Decode[tuplesResponse](raw)
	if err != nil {
		m.Logger.Warn("discarding unparsable concept tuples", "error", err)
		return []types.ConceptTuple{}, fmt.Errorf("proposing concept tuples: %w", joinEmpty(err))
	}

	seen := map[types.ConceptTuple]bool{}
	tuples := make([]types.ConceptTuple, 0, len(resp.ConceptTuples))
	for _, pair := range resp.ConceptTuples {
		if len(pair) != 2 {
			continue
		}
		t := types.ConceptTuple{A: types.NormalizeLabel(pair[0]), B: types.NormalizeLabel(pair[1])}
		if t.A == "" || t.B == "" || t.A == t.B || seen[t] {
			continue
		}
		seen[t] = true
		tuples = append(tuples, t)
	}
	if len(tuples) == 0 {
		return tuples, fmt.Errorf("proposing concept tuples: %w", llm.ErrEmptyResult)
	}
	return tuples, nil
}

// ConstructModel writes a prose theoretical model from the theories,
// dimensions, and interrelationships in state. When state carries a
// critique, the previous description and the critique are included so the
// new model addresses it.
func (m *Modeler) ConstructModel(ctx context.Context, state types.ModelState, remarks string) (string, error) {
	hasCritique := strings.TrimSpace(state.Critique) != ""
	system, err := llm.Render(m.Prompts.ModelConstruction, struct {
		Remarks  string
		Critique bool
	}{remarks, hasCritique})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Applicable theories:\n%s\n", state.FormatTheories())
	fmt.Fprintf(&b, "Aggregate dimensions:\n%s\n", state.FormatDimensions())
	fmt.Fprintf(&b, "Interrelationships:\n%s", state.FormatInterrelationships())
	if hasCritique {
		fmt.Fprintf(&b, "\nPrevious model:\n%s\n\nCritique:\n%s\n", state.ModelDescription, state.Critique)
	}

	return m.text(ctx, "constructing model", system, b.String(), constructionMaxTokens)
}

// ModelName returns a short name for the model described by description.
func (m *Modeler) ModelName(ctx context.Context, description string) (string, error) {
	name, err := m.text(ctx, "naming model", m.Prompts.ModelName, description, nameMaxTokens)
	if err != nil {
		return "", err
	}
	return strings.Trim(name, "\"'*# \n"), nil
}

// Visualize asks for a Mermaid diagram of the model and returns it cleaned
// with CleanDiagram.
func (m *Modeler) Visualize(ctx context.Context, state types.ModelState) (string, error) {
	user := state.ModelDescription
	if state.ModelName != "" {
		user = state.ModelName + "\n\n" + user
	}
	raw, err := m.text(ctx, "visualizing model", m.Prompts.Visualization, user, diagramMaxTokens)
	if err != nil {
		return "", err
	}
	diagram := CleanDiagram(raw)
	if diagram == "" {
		return "", fmt.Errorf("visualizing model: %w", llm.ErrEmptyResult)
	}
	return diagram, nil
}

// Critique reviews the current model and returns free-text criticism that
// feeds the next construction.
func (m *Modeler) Critique(ctx context.Context, state types.ModelState) (string, error) {
	var b strings.Builder
	if state.ModelName != "" {
		fmt.Fprintf(&b, "Model name: %s\n\n", state.ModelName)
	}
	fmt.Fprintf(&b, "Model:\n%s\n\nAggregate dimensions:\n%s", state.ModelDescription, state.FormatDimensions())
	return m.text(ctx, "critiquing model", m.Prompts.Critique, b.String(), critiqueMaxTokens)
}

// text runs a free-text completion and trims the answer. An empty answer is
// reported as ErrEmptyResult.
func (m *Modeler) text(ctx context.Context, what, system, user string, maxTokens int) (string, error) {
	raw, err := m.Gateway.Complete(ctx, llm.Request{System: system, User: user, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("%s: %w", what, err)
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return "", fmt.Errorf("%s: %w", what, llm.ErrEmptyResult)
	}
	return out, nil
}

// focusOf combines the research query and the free-text remarks.
func focusOf(state types.ModelState) string {
	parts := make([]string, 0, 2)
	if q := strings.TrimSpace(state.Query); q != "" {
		parts = append(parts, q)
	}
	if r := strings.TrimSpace(state.Remarks); r != "" {
		parts = append(parts, r)
	}
	return strings.Join(parts, ". ")
}

func joinEmpty(err error) error {
	return fmt.Errorf("%w: %w", llm.ErrEmptyResult, err)
}
