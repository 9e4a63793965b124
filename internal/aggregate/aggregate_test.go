// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/internal/llm/llmtest"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

func newTestAggregator(g llm.Gateway, threshold int) *Aggregator {
	return NewAggregator(g, llm.DefaultPrompts(), types.StageConfig{FocusThreshold: threshold},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSecondOrderCodingSingleCall(t *testing.T) {
	fake := llmtest.Reply(`{"Autonomy": ["remote work autonomy", "flexible hours"]}`)
	a := newTestAggregator(fake, 0)

	got, err := a.SecondOrderCoding(context.Background(), []string{"remote work autonomy", "flexible hours"})
	require.NoError(t, err)
	assert.Equal(t, types.FocusCodeMap{"Autonomy": {"remote work autonomy", "flexible hours"}}, got)
	require.Equal(t, 1, fake.Calls())

	req := fake.Requests()[0]
	assert.Equal(t, "remote work autonomy\nflexible hours", req.User)
	assert.Contains(t, req.System, "at most 10")
}

func TestSecondOrderCodingMergesBucketsAcrossChunks(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.User, "a") {
			return `{"X": ["a"]}`, nil
		}
		return `{"X": ["b"]}`, nil
	}}
	a := newTestAggregator(fake, 2)

	got, err := a.SecondOrderCoding(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls())
	require.Contains(t, got, "X")
	assert.ElementsMatch(t, []string{"a", "b"}, got["X"])
}

func TestSecondOrderCodingChunksKeepCodesWhole(t *testing.T) {
	codes := []string{"alpha", "beta", "gamma"}
	fake := llmtest.Reply(`{}`)
	a := newTestAggregator(fake, 6)
	_, _ = a.SecondOrderCoding(context.Background(), codes)

	var seen []string
	for _, req := range fake.Requests() {
		for _, line := range strings.Split(strings.TrimSpace(req.User), "\n") {
			seen = append(seen, line)
		}
	}
	assert.Equal(t, codes, seen)
}

func TestSecondOrderCodingMalformedChunkDoesNotBlockOthers(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.User, "alpha"):
			return `{"Greek": ["alpha"]}`, nil
		case strings.Contains(req.User, "beta"):
			return `{"Greek": ["beta"` + " oops", nil
		default:
			return `{"Greek": ["gamma"], "Other": ["gamma"]}`, nil
		}
	}}
	a := newTestAggregator(fake, 6)

	got, err := a.SecondOrderCoding(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	assert.Equal(t, 3, fake.Calls())
	assert.ElementsMatch(t, []string{"alpha", "gamma"}, got["Greek"])
	assert.Equal(t, []string{"gamma"}, got["Other"])
}

func TestSecondOrderCodingDropsInventedMembers(t *testing.T) {
	fake := llmtest.Reply(`{"Autonomy": ["remote work autonomy", "invented code"], "Ghost": ["nothing real"]}`)
	a := newTestAggregator(fake, 0)

	got, err := a.SecondOrderCoding(context.Background(), []string{"remote work autonomy"})
	require.NoError(t, err)
	assert.Equal(t, types.FocusCodeMap{"Autonomy": {"remote work autonomy"}}, got)
}

func TestSecondOrderCodingAllUnparsable(t *testing.T) {
	a := newTestAggregator(llmtest.Reply("no json here"), 0)
	got, err := a.SecondOrderCoding(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, llm.ErrEmptyResult)
	assert.True(t, llm.IsSchemaParse(err))
	assert.Empty(t, got)
}

func TestSecondOrderCodingProviderError(t *testing.T) {
	perr := &llm.ProviderError{Provider: "test", Status: 429, Err: errors.New("slow down")}
	a := newTestAggregator(llmtest.Fail(perr), 0)
	_, err := a.SecondOrderCoding(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, perr)
	assert.NotErrorIs(t, err, llm.ErrEmptyResult)
}

func TestAggregateDimensionsSendsKeysOnly(t *testing.T) {
	fake := llmtest.Reply(`{"Work Design": ["Autonomy", "Flexibility"], "Relations": ["Trust"]}`)
	a := newTestAggregator(fake, 0)

	focus := types.FocusCodeMap{
		"Autonomy":    {"member one"},
		"Flexibility": {"member two"},
		"Trust":       {"member three"},
	}
	got, err := a.AggregateDimensions(context.Background(), focus)
	require.NoError(t, err)
	assert.Equal(t, types.AggregateDimensionMap{
		"Work Design": {"Autonomy", "Flexibility"},
		"Relations":   {"Trust"},
	}, got)

	req := fake.Requests()[0]
	assert.Equal(t, "Autonomy\nFlexibility\nTrust", req.User)
	assert.NotContains(t, req.User, "member")
	assert.Contains(t, req.System, "5 to 7")
}

func TestAggregateDimensionsParseFailureIsSoft(t *testing.T) {
	a := newTestAggregator(llmtest.Reply("Sorry, I cannot help with that."), 0)
	got, err := a.AggregateDimensions(context.Background(), types.FocusCodeMap{"Autonomy": {"x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrEmptyResult)
	assert.True(t, llm.IsSchemaParse(err))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregateDimensionsEmptyInput(t *testing.T) {
	fake := llmtest.Reply(`{}`)
	a := newTestAggregator(fake, 0)
	_, err := a.AggregateDimensions(context.Background(), nil)
	assert.ErrorIs(t, err, llm.ErrEmptyResult)
	assert.Equal(t, 0, fake.Calls())
}
