// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gioia-engine/internal/pipeline"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

var _ pipeline.SessionStore = (*Store)(nil)

func testSetup(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.StoreConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func remoteWorkState() types.ModelState {
	return types.ModelState{
		Query: "remote work",
		Documents: []types.Document{
			{ID: "p1", Title: "Remote teams", Abstract: "Trust in distributed teams", Codes: []string{"trust"}},
			{ID: "p2", Title: "Office return", Abstract: "Managers and hybrid schedules"},
		},
		FirstOrderCodes: []string{"trust"},
		FocusCodes:      types.FocusCodeMap{"Relational trust": {"trust"}},
	}
}

func TestNewStoreCreatesSchema(t *testing.T) {
	store := testSetup(t)

	for _, table := range []string{"sessions", "documents"} {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?`, table,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := NewStore(types.StoreConfig{Dir: dir})
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(dir, dbFile))
	assert.NoError(t, err)
}

func TestNewStoreReopens(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(types.StoreConfig{Dir: dir})
	require.NoError(t, err)
	sess, err := first.NewSession(context.Background(), "", "remote work")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(types.StoreConfig{Dir: dir})
	require.NoError(t, err)
	defer second.Close()
	got, err := second.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote work", got.State.Query)
}

func TestNewSession(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	sess, err := store.NewSession(ctx, "", "remote work")
	require.NoError(t, err)
	assert.Len(t, sess.ID, 36)
	assert.Equal(t, "remote work", sess.Name, "name defaults to the query")
	assert.Equal(t, "idle", sess.Stage)

	other, err := store.NewSession(ctx, "pilot", "remote work")
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, other.ID)
	assert.Equal(t, "pilot", other.Name)
}

func TestSaveStateAndLoad(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	sess, err := store.NewSession(ctx, "", "remote work")
	require.NoError(t, err)
	state := remoteWorkState()
	require.NoError(t, store.SaveState(ctx, sess.ID, "focus-coding", state))

	got, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "focus-coding", got.Stage)
	assert.Equal(t, state.FocusCodes, got.State.FocusCodes)
	require.Len(t, got.State.Documents, 2)
	assert.Equal(t, []string{"trust"}, got.State.Documents[0].Codes)
	assert.Nil(t, got.State.Documents[1].Codes, "uncoded documents stay uncoded")
}

func TestSaveStateKeepsCodedEmpty(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	sess, err := store.NewSession(ctx, "", "q")
	require.NoError(t, err)
	state := types.ModelState{Documents: []types.Document{{ID: "d", Codes: []string{}}}}
	require.NoError(t, store.SaveState(ctx, sess.ID, "coding", state))

	got, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.State.Documents[0].IsCoded())
	assert.Empty(t, got.State.Documents[0].Codes)
}

func TestSaveStateUnknownSession(t *testing.T) {
	store := testSetup(t)
	err := store.SaveState(context.Background(), "missing", "coding", types.ModelState{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadNotFound(t *testing.T) {
	store := testSetup(t)
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveStatePrunesDocuments(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	sess, err := store.NewSession(ctx, "", "remote work")
	require.NoError(t, err)
	state := remoteWorkState()
	require.NoError(t, store.SaveState(ctx, sess.ID, "coding", state))

	state.Documents = state.Documents[:1]
	require.NoError(t, store.SaveState(ctx, sess.ID, "coding", state))

	var count int
	require.NoError(t, store.db.QueryRow(
		`SELECT count(*) FROM documents WHERE session_id = ?`, sess.ID).Scan(&count))
	assert.Equal(t, 1, count)

	hits, err := store.SearchDocuments(ctx, "hybrid", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestList(t *testing.T) {
	store := testSetup(t)
	store.now = steppingClock()
	ctx := context.Background()

	a, err := store.NewSession(ctx, "a", "first")
	require.NoError(t, err)
	b, err := store.NewSession(ctx, "b", "second")
	require.NoError(t, err)
	require.NoError(t, store.SaveState(ctx, a.ID, "coding", remoteWorkState()))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID, "most recently updated first")
	assert.Equal(t, "coding", list[0].Stage)
	assert.Equal(t, 2, list[0].Documents)
	assert.Equal(t, "remote work", list[0].Query)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Equal(t, 0, list[1].Documents)
}

func TestDelete(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	sess, err := store.NewSession(ctx, "", "remote work")
	require.NoError(t, err)
	require.NoError(t, store.SaveState(ctx, sess.ID, "coding", remoteWorkState()))

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Load(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	hits, err := store.SearchDocuments(ctx, "trust", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.ErrorIs(t, store.Delete(ctx, sess.ID), ErrNotFound)
}

func TestSearchDocuments(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	a, err := store.NewSession(ctx, "", "remote work")
	require.NoError(t, err)
	b, err := store.NewSession(ctx, "", "leadership")
	require.NoError(t, err)
	require.NoError(t, store.SaveState(ctx, a.ID, "coding", remoteWorkState()))
	require.NoError(t, store.SaveState(ctx, b.ID, "coding", types.ModelState{
		Documents: []types.Document{{ID: "x", Title: "Servant leaders", FullText: "Leaders build trust slowly"}},
	}))

	tests := []struct {
		name  string
		query string
		opts  SearchOptions
		want  []string
	}{
		{"across sessions", "trust", SearchOptions{}, []string{"p1", "x"}},
		{"scoped to session", "trust", SearchOptions{SessionID: b.ID}, []string{"x"}},
		{"abstract match", "hybrid", SearchOptions{}, []string{"p2"}},
		{"no match", "blockchain", SearchOptions{}, nil},
		{"blank query", "  ", SearchOptions{}, nil},
		{"limit", "trust", SearchOptions{MaxResults: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := store.SearchDocuments(ctx, tt.query, tt.opts)
			require.NoError(t, err)
			if tt.opts.MaxResults == 1 {
				assert.Len(t, hits, 1)
				return
			}
			var ids []string
			for _, h := range hits {
				ids = append(ids, h.DocumentID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestExport(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()

	sess, err := store.NewSession(ctx, "pilot", "remote work")
	require.NoError(t, err)
	state := remoteWorkState()
	state.ModelName = "Trust Bridge"
	require.NoError(t, store.SaveState(ctx, sess.ID, "naming", state))

	t.Run("yaml", func(t *testing.T) {
		path, err := store.ExportYAML(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(store.Dir(), exportDir, sess.ID+".yaml"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var got Session
		require.NoError(t, yaml.Unmarshal(data, &got))
		assert.Equal(t, "pilot", got.Name)
		assert.Equal(t, "Trust Bridge", got.State.ModelName)
		assert.Equal(t, state.FocusCodes, got.State.FocusCodes)
	})

	t.Run("json", func(t *testing.T) {
		path, err := store.ExportJSON(ctx, sess.ID)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var got Session
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "naming", got.Stage)
		assert.Len(t, got.State.Documents, 2)
	})

	t.Run("missing session", func(t *testing.T) {
		_, err := store.ExportJSON(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
