// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gioia-engine/internal/embedding"
	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/internal/pipeline"
	"github.com/pdiddy/gioia-engine/internal/store"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

// app bundles the configuration and the open store for one command run.
type app struct {
	cfg   types.Config
	store *store.Store
}

func openApp() (*app, error) {
	cfg := loadConfig()
	s, err := store.NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, store: s}, nil
}

func (a *app) Close() error { return a.store.Close() }

// embedder returns the OpenAI embedder with the configured model.
func (a *app) embedder() embedding.Embedder {
	ec := a.cfg.LLM
	ec.Provider = types.ProviderOpenAI
	ec.APIKey = embeddingKey(a.cfg, loadedSecrets)
	return embedding.NewOpenAIEmbedder(llm.NewOpenAIClient(ec, nil), a.cfg.Embedding.Model)
}

func (a *app) indexOptions() []embedding.Option {
	return []embedding.Option{
		embedding.WithBatchSize(a.cfg.Embedding.BatchSize),
		embedding.WithConcurrency(a.cfg.Embedding.Concurrency),
	}
}

// workers builds the stage implementations over the configured gateway.
func (a *app) workers() (pipeline.Workers, error) {
	g, err := llm.NewGateway(a.cfg.LLM, nil)
	if err != nil {
		return pipeline.Workers{}, err
	}
	prompts, err := llm.LoadPrompts(a.cfg.LLM.PromptsFile)
	if err != nil {
		return pipeline.Workers{}, err
	}
	w := pipeline.NewWorkers(g, a.embedder(), prompts, a.cfg.Stages, slog.Default())
	w.Modeler.IndexOptions = a.indexOptions()
	return w, nil
}

// session resolves id to a stored session. An empty id selects the most
// recently updated session.
func (a *app) session(ctx context.Context, id string) (store.Session, error) {
	if id == "" {
		list, err := a.store.List(ctx)
		if err != nil {
			return store.Session{}, err
		}
		if len(list) == 0 {
			return store.Session{}, errors.New("no sessions: create one with \"session new\"")
		}
		id = list[0].ID
	}
	return a.store.Load(ctx, id)
}

// controller restores a session into a Controller that persists every
// merged result and reports stage progress to progress. Without stages the
// controller can only edit the corpus and needs no provider credentials.
func (a *app) controller(ctx context.Context, id string, progress io.Writer, stages bool) (*pipeline.Controller, store.Session, error) {
	sess, err := a.session(ctx, id)
	if err != nil {
		return nil, store.Session{}, err
	}
	stage, err := pipeline.ParseStage(sess.Stage)
	if err != nil {
		return nil, store.Session{}, fmt.Errorf("session %s: %w", sess.ID, err)
	}
	var w pipeline.Workers
	if stages {
		if w, err = a.workers(); err != nil {
			return nil, store.Session{}, err
		}
	}
	c := pipeline.New(sess.State, w,
		pipeline.WithStore(a.store, sess.ID),
		pipeline.WithStage(stage),
		pipeline.WithMaxIterations(a.cfg.Stages.MaxIterations),
		pipeline.WithRankK(a.cfg.Stages.RankK),
		pipeline.WithLogger(slog.Default()),
		pipeline.WithOnChange(progressPrinter(progress)),
	)
	return c, sess, nil
}

// progressPrinter writes one line per stage status change.
func progressPrinter(w io.Writer) func(pipeline.Stage, pipeline.Status) {
	return func(s pipeline.Stage, st pipeline.Status) {
		switch {
		case st.Loading:
			fmt.Fprintf(w, "%s: running\n", s)
		case st.Err != nil:
			fmt.Fprintf(w, "%s: %v\n", s, st.Err)
		default:
			fmt.Fprintf(w, "%s: done\n", s)
		}
	}
}

// stageError turns a stage outcome into the command's error. Partial batch
// failures are reported on stderr and do not fail the command.
func stageError(err error) error {
	var pbf *pipeline.PartialBatchFailure
	if errors.As(err, &pbf) {
		warn(err)
		return nil
	}
	return err
}

// warn reports a non-fatal stage error on stderr.
func warn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// withController opens the app and the session named by the --session
// flag, runs fn with a stage-capable controller, and closes the store.
func withController(cmd *cobra.Command, fn func(ctx context.Context, c *pipeline.Controller) error) error {
	return runController(cmd, true, fn)
}

// withCorpus is withController for commands that only edit documents.
func withCorpus(cmd *cobra.Command, fn func(ctx context.Context, c *pipeline.Controller) error) error {
	return runController(cmd, false, fn)
}

func runController(cmd *cobra.Command, stages bool, fn func(ctx context.Context, c *pipeline.Controller) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, _ := cmd.Flags().GetString("session")
	c, sess, err := a.controller(cmd.Context(), id, os.Stderr, stages)
	if err != nil {
		return err
	}
	slog.Debug("session loaded", "id", sess.ID, "stage", sess.Stage)
	return stageError(fn(cmd.Context(), c))
}

func addSessionFlag(cmd *cobra.Command) {
	cmd.Flags().String("session", "", "session ID (default: most recently updated session)")
}
