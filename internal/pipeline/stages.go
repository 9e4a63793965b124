// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/internal/ranking"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

// classify turns a stage error into a result kind: soft empty results are
// merged, everything else is a failure.
func classify(err error) Kind {
	if errors.Is(err, llm.ErrEmptyResult) {
		return KindEmpty
	}
	return KindError
}

func needDimensions(_ Stage, s types.ModelState) error {
	if len(s.AggregateDimensions) == 0 {
		return guard(QualitativeModeling, FinishPreviousSteps)
	}
	return nil
}

// AddDocuments merges docs into the corpus, replacing documents with the
// same ID. Documents can only be added before focus coding starts.
func (c *Controller) AddDocuments(ctx context.Context, docs []types.Document) error {
	switch c.Stage() {
	case Idle, Coding:
	default:
		return guard(Coding, "Documents can only be added before focus coding.")
	}
	_, err := c.mutate(ctx, func(_ context.Context, s types.ModelState) StageResult {
		merged := cloneDocuments(s.Documents)
		index := make(map[string]int, len(merged))
		for i, d := range merged {
			index[d.ID] = i
		}
		for _, d := range docs {
			if i, ok := index[d.ID]; ok {
				merged[i] = d
				continue
			}
			index[d.ID] = len(merged)
			merged = append(merged, d)
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{Documents: merged}}
	})
	return err
}

// SetQuery records the research query and remarks used by later stages.
func (c *Controller) SetQuery(query, remarks string) error {
	if !c.run.TryLock() {
		return ErrBusy
	}
	defer c.run.Unlock()
	c.mu.Lock()
	c.state.Query = query
	c.state.Remarks = remarks
	c.mu.Unlock()
	return nil
}

// RunCoding codes every uncoded document and collects the global code set.
// Documents that fail are reported in a PartialBatchFailure and retried on
// the next run.
func (c *Controller) RunCoding(ctx context.Context) (StageResult, error) {
	pre := func(_ Stage, s types.ModelState) error {
		if len(s.Documents) == 0 {
			return guard(Coding, "Add documents to the session first.")
		}
		return nil
	}
	return c.execute(ctx, Coding, pre, func(ctx context.Context, s types.ModelState) StageResult {
		res, err := c.workers.Coder.CodeCorpus(ctx, s.Documents, s.Remarks)
		if err != nil {
			return StageResult{Kind: KindError, Err: err}
		}
		kind := KindSuccess
		if len(res.GlobalCodes) == 0 {
			kind = KindEmpty
		}
		return StageResult{
			Kind:  kind,
			Patch: Patch{Documents: res.Documents, FirstOrderCodes: append([]string{}, res.GlobalCodes...)},
			Err:   partial(Coding, len(s.Documents), res.Failures),
		}
	})
}

// RunFocusCoding groups the first-order codes into focus codes.
func (c *Controller) RunFocusCoding(ctx context.Context) (StageResult, error) {
	pre := func(_ Stage, s types.ModelState) error {
		if len(s.FirstOrderCodes) == 0 {
			return guard(FocusCoding, "No first-order codes yet; run coding first.")
		}
		return nil
	}
	return c.execute(ctx, FocusCoding, pre, func(ctx context.Context, s types.ModelState) StageResult {
		focus, err := c.workers.Aggregator.SecondOrderCoding(ctx, s.FirstOrderCodes)
		if err != nil {
			return StageResult{Kind: classify(err), Patch: Patch{FocusCodes: types.FocusCodeMap{}}, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{FocusCodes: focus}}
	})
}

// RunAggregateDimensions distills the focus codes into aggregate dimensions.
func (c *Controller) RunAggregateDimensions(ctx context.Context) (StageResult, error) {
	pre := func(_ Stage, s types.ModelState) error {
		if len(s.FocusCodes) == 0 {
			return guard(AggregateDimensions, "No focus codes yet; run focus coding first.")
		}
		return nil
	}
	return c.execute(ctx, AggregateDimensions, pre, func(ctx context.Context, s types.ModelState) StageResult {
		dims, err := c.workers.Aggregator.AggregateDimensions(ctx, s.FocusCodes)
		if err != nil {
			return StageResult{Kind: classify(err), Patch: Patch{AggregateDimensions: types.AggregateDimensionMap{}}, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{AggregateDimensions: dims}}
	})
}

// BeginLiteratureReview enters the literature review branch and streams a
// review of the corpus to onToken.
func (c *Controller) BeginLiteratureReview(ctx context.Context, onToken func(string)) (StageResult, error) {
	return c.execute(ctx, LiteratureReview, needDimensions, func(ctx context.Context, s types.ModelState) StageResult {
		text, err := c.workers.Reviewer.LiteratureReview(ctx, s.Query, s.Documents, onToken)
		if err != nil {
			return StageResult{Kind: classify(err), Patch: Patch{LiteratureReview: ptr("")}, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{LiteratureReview: &text}}
	})
}

// RunResearchQuestions suggests research questions within the literature
// review branch.
func (c *Controller) RunResearchQuestions(ctx context.Context) (StageResult, error) {
	return c.execute(ctx, LiteratureReview, needDimensions, func(ctx context.Context, s types.ModelState) StageResult {
		qs, err := c.workers.Reviewer.ResearchQuestions(ctx, s.Query, s.Documents)
		if err != nil {
			return StageResult{Kind: classify(err), Patch: Patch{ResearchQuestions: []string{}}, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{ResearchQuestions: qs}}
	})
}

// BeginModeling enters the qualitative modeling branch.
func (c *Controller) BeginModeling(ctx context.Context) (StageResult, error) {
	return c.execute(ctx, QualitativeModeling, needDimensions, func(context.Context, types.ModelState) StageResult {
		return StageResult{Kind: KindSuccess}
	})
}

// RunTheories brainstorms applicable theories. The result replaces any
// previous theory list.
func (c *Controller) RunTheories(ctx context.Context) (StageResult, error) {
	return c.execute(ctx, TheoryBrainstorm, needDimensions, func(ctx context.Context, s types.ModelState) StageResult {
		theories, err := c.workers.Modeler.BrainstormTheories(ctx, s)
		if err != nil {
			return StageResult{Kind: classify(err), Patch: Patch{Theories: []types.ApplicableTheory{}}, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{Theories: theories}}
	})
}

// RunConceptTuples proposes concept pairs to investigate.
func (c *Controller) RunConceptTuples(ctx context.Context) (StageResult, error) {
	return c.execute(ctx, ConceptTuples, needDimensions, func(ctx context.Context, s types.ModelState) StageResult {
		tuples, err := c.workers.Modeler.ConceptTuples(ctx, s)
		if err != nil {
			return StageResult{Kind: classify(err), Patch: Patch{ConceptTuples: []types.ConceptTuple{}}, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{ConceptTuples: tuples}}
	})
}

// RunInterrelationships summarizes the relationship of every concept tuple
// from retrieved evidence.
func (c *Controller) RunInterrelationships(ctx context.Context) (StageResult, error) {
	pre := func(_ Stage, s types.ModelState) error {
		if len(s.ConceptTuples) == 0 {
			return guard(Interrelationships, "No concept tuples yet; propose concept tuples first.")
		}
		return nil
	}
	return c.execute(ctx, Interrelationships, pre, func(ctx context.Context, s types.ModelState) StageResult {
		rel, err := c.workers.Modeler.Interrelationships(ctx, s, s.ConceptTuples)
		if err != nil {
			return StageResult{Kind: KindError, Err: err}
		}
		return StageResult{
			Kind:  KindSuccess,
			Patch: Patch{Interrelationships: rel.Interrelationships},
			Err:   partial(Interrelationships, len(s.ConceptTuples), rel.Failures),
		}
	})
}

// RunModelConstruction writes the theoretical model. Once a critique
// exists every run rebuilds the model addressing it, up to the configured
// iteration limit.
func (c *Controller) RunModelConstruction(ctx context.Context) (StageResult, error) {
	pre := func(_ Stage, s types.ModelState) error {
		if s.Interrelationships == nil {
			return guard(ModelConstruction, "No interrelationships yet; discover interrelationships first.")
		}
		if s.Critique != "" && c.maxIterations > 0 && s.Iteration >= c.maxIterations {
			return guard(ModelConstruction, "Iteration limit of %d reached.", c.maxIterations)
		}
		return nil
	}
	return c.execute(ctx, ModelConstruction, pre, func(ctx context.Context, s types.ModelState) StageResult {
		desc, err := c.workers.Modeler.ConstructModel(ctx, s, s.Remarks)
		if err != nil {
			return StageResult{Kind: KindError, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{
			ModelDescription: &desc,
			Iteration:        ptr(s.Iteration + 1),
		}}
	})
}

func needModel(stage Stage) check {
	return func(_ Stage, s types.ModelState) error {
		if strings.TrimSpace(s.ModelDescription) == "" {
			return guard(stage, "No model yet; construct the model first.")
		}
		return nil
	}
}

// RunNaming names the model.
func (c *Controller) RunNaming(ctx context.Context) (StageResult, error) {
	return c.execute(ctx, Naming, needModel(Naming), func(ctx context.Context, s types.ModelState) StageResult {
		name, err := c.workers.Modeler.ModelName(ctx, s.ModelDescription)
		if err != nil {
			return StageResult{Kind: KindError, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{ModelName: &name}}
	})
}

// RunVisualization renders the model as a Mermaid diagram.
func (c *Controller) RunVisualization(ctx context.Context) (StageResult, error) {
	return c.execute(ctx, Visualization, needModel(Visualization), func(ctx context.Context, s types.ModelState) StageResult {
		diagram, err := c.workers.Modeler.Visualize(ctx, s)
		if err != nil {
			return StageResult{Kind: KindError, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{ModelVisualization: &diagram}}
	})
}

// RunCritique critiques the model. The critique feeds the next
// RunModelConstruction.
func (c *Controller) RunCritique(ctx context.Context) (StageResult, error) {
	return c.execute(ctx, Critique, needModel(Critique), func(ctx context.Context, s types.ModelState) StageResult {
		critique, err := c.workers.Modeler.Critique(ctx, s)
		if err != nil {
			return StageResult{Kind: KindError, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{Critique: &critique}}
	})
}

// Iterate runs one refinement round: construction from the critique,
// naming, visualization, and a fresh critique.
func (c *Controller) Iterate(ctx context.Context) error {
	steps := []func(context.Context) (StageResult, error){
		c.RunModelConstruction,
		c.RunNaming,
		c.RunVisualization,
		c.RunCritique,
	}
	for _, step := range steps {
		if res, err := step(ctx); res.Kind == KindError {
			return err
		}
	}
	return nil
}

// Rank reorders the corpus by relevance to the query. Documents that were
// not retrieved are kept after the ranked ones when keepUnranked is set
// and dropped otherwise.
func (c *Controller) Rank(ctx context.Context, keepUnranked bool) error {
	_, err := c.mutate(ctx, func(ctx context.Context, s types.ModelState) StageResult {
		if strings.TrimSpace(s.Query) == "" {
			return StageResult{Kind: KindError, Err: guard(c.Stage(), "Set a research query before ranking.")}
		}
		docs, err := ranking.Rank(ctx, c.workers.Embedder, s.Query, s.Documents, ranking.Options{
			K:            c.rankK,
			KeepUnranked: keepUnranked,
		})
		if err != nil {
			return StageResult{Kind: KindError, Err: err}
		}
		return StageResult{Kind: KindSuccess, Patch: Patch{Documents: docs}}
	})
	return err
}

// RunDetail extracts the custom column from every document that lacks it.
// Failed documents are reported in a PartialBatchFailure.
func (c *Controller) RunDetail(ctx context.Context, column string) error {
	if strings.TrimSpace(column) == "" {
		return fmt.Errorf("detail: empty column name")
	}
	_, err := c.mutate(ctx, func(ctx context.Context, s types.ModelState) StageResult {
		docs := cloneDocuments(s.Documents)
		failures := c.workers.Reviewer.DetailAll(ctx, docs, column)
		return StageResult{Kind: KindSuccess, Patch: Patch{Documents: docs}, Err: partial(c.Stage(), len(docs), failures)}
	})
	return err
}

