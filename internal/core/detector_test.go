package core

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/catalog-dedupe/internal/config"
	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/core/validation"
	"github.com/agenthands/catalog-dedupe/internal/llm"
)

const confirmResponse = `{"is_duplicate": true, "confidence": 88, "rationale": "same laptop", "common_specs": ["T41"], "differences": [], "recommendation": "merge"}`

func newDetector(s *MockStore, embedder llm.EmbedderClient, judge llm.LLMClient) *Detector {
	gateway := validation.NewGateway(judge, config.ValidationConfig{Temperature: 0.1}, zerolog.Nop())
	return NewDetector(s, embedder, gateway, zerolog.Nop())
}

// rangeCatalog holds items 10..13 where only 10 and 12 are similar (0.9).
func rangeCatalog() *MockStore {
	return &MockStore{Items: []model.CatalogItem{
		product(10, "Computers", []float32{1, 0}),
		product(11, "Computers", []float32{0, 1}),
		product(12, "Computers", unit(0.9)),
		product(13, "Computers", []float32{-1, 0}),
	}}
}

func TestSearchByDescription_EndToEnd(t *testing.T) {
	s := &MockStore{Items: []model.CatalogItem{
		product(1, "Computers", unit(0.81)),
		product(2, "Computers", unit(0.60)),
	}}
	d := newDetector(s, &MockEmbedder{Vector: []float32{1, 0}}, nil)

	result, err := d.SearchByDescription(context.Background(), model.DescriptionSearch{
		Options: model.Options{Threshold: 0.75},
		Query:   "laptop lenovo t41",
	})

	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	require.Len(t, group.Items, 1)
	assert.Equal(t, int64(1), group.Items[0].ID)
	assert.InDelta(t, 0.81, group.Items[0].SimilarityToAnchor, 0.001)
	assert.Equal(t, model.StatusPossibleDuplicate, group.Status)
	assert.Nil(t, group.Confidence)
	assert.Nil(t, group.Rationale)

	assert.Equal(t, 1, result.Summary.GroupCount)
	assert.Equal(t, 1, result.Summary.DuplicateCount)
	assert.Equal(t, 0.75, result.Config.Threshold)
	assert.False(t, result.Config.ValidationUsed)
}

func TestSearchByDescription_NoMatches(t *testing.T) {
	s := &MockStore{Items: []model.CatalogItem{product(1, "Computers", unit(0.2))}}
	d := newDetector(s, &MockEmbedder{Vector: []float32{1, 0}}, nil)

	result, err := d.SearchByDescription(context.Background(), model.DescriptionSearch{
		Options: model.Options{Threshold: 0.75},
		Query:   "anything",
	})

	require.NoError(t, err)
	assert.Empty(t, result.Groups)
	assert.Equal(t, 0, result.Summary.GroupCount)
}

func TestSearchByDescription_VerdictAttachedEvenWhenNegative(t *testing.T) {
	s := &MockStore{Items: []model.CatalogItem{product(1, "Computers", unit(0.9))}}
	judge := &MockLLM{Response: `{"is_duplicate": false, "confidence": 30, "rationale": "different model"}`}
	d := newDetector(s, &MockEmbedder{Vector: []float32{1, 0}}, judge)

	result, err := d.SearchByDescription(context.Background(), model.DescriptionSearch{
		Options: model.Options{Threshold: 0.75, UseValidation: true},
		Query:   "laptop",
	})

	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Equal(t, model.StatusPossibleDuplicate, group.Status)
	require.NotNil(t, group.Confidence)
	assert.Equal(t, 30.0, *group.Confidence)
	require.NotNil(t, group.Rationale)
	assert.Equal(t, "different model", *group.Rationale)
	assert.Len(t, judge.Prompts, 1)
}

func TestSearchByDescription_EmbeddingUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		embedder llm.EmbedderClient
	}{
		{"no embedder", nil},
		{"embed error", &MockEmbedder{Err: errors.New("quota exceeded")}},
		{"empty vector", &MockEmbedder{Vector: []float32{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &MockStore{}
			d := newDetector(s, tt.embedder, nil)

			_, err := d.SearchByDescription(context.Background(), model.DescriptionSearch{
				Options: model.Options{Threshold: 0.75},
				Query:   "laptop",
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
			assert.Equal(t, KindEmbeddingUnavailable, KindOf(err))
			assert.Equal(t, 0, s.Calls)
		})
	}
}

func TestSearchByRange_Example(t *testing.T) {
	d := newDetector(rangeCatalog(), nil, nil)

	var progress []model.ProgressEvent
	result, err := d.SearchByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75},
		FromID:  10,
		ToID:    13,
	}, func(p model.ProgressEvent) {
		progress = append(progress, p)
	})

	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	require.Len(t, group.Items, 2)
	assert.Equal(t, int64(10), group.Items[0].ID)
	assert.Equal(t, 1.0, group.Items[0].SimilarityToAnchor)
	assert.Equal(t, int64(12), group.Items[1].ID)
	assert.InDelta(t, 0.9, group.Items[1].SimilarityToAnchor, 0.001)
	assert.Equal(t, 1, group.ID)
	assert.Equal(t, 2, result.Summary.DuplicateCount)

	require.Len(t, progress, 4)
	for i, p := range progress {
		assert.Equal(t, i+1, p.Current)
		assert.Equal(t, 4, p.Total)
	}
	assert.Equal(t, 100.0, progress[3].Percentage)
}

func TestSearchByRange_NoItemInTwoGroups(t *testing.T) {
	// 1, 2 and 3 are all mutually similar; 3 must not be re-anchored after
	// joining the group of 1.
	s := &MockStore{Items: []model.CatalogItem{
		product(1, "Computers", []float32{1, 0}),
		product(2, "Computers", unit(0.95)),
		product(3, "Computers", unit(0.9)),
	}}
	d := newDetector(s, nil, nil)

	result, err := d.SearchByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75},
		FromID:  1,
		ToID:    3,
	}, nil)

	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	ids := make([]int64, 0)
	for _, it := range result.Groups[0].Items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

// A chain 10~11 (0.90), 11~12 (0.83), 10~12 (0.50): once 11 joins 10's group
// it is no longer a candidate, so 12 has nothing left to match.
func TestSearchByRange_ChainDoesNotReuseProcessedItems(t *testing.T) {
	s := &MockStore{Items: []model.CatalogItem{
		product(10, "Computers", []float32{1, 0}),
		product(11, "Computers", unit(0.9)),
		product(12, "Computers", unit(0.5)),
	}}
	d := newDetector(s, nil, nil)

	var progress []model.ProgressEvent
	result, err := d.SearchByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75},
		FromID:  10,
		ToID:    12,
	}, func(p model.ProgressEvent) {
		progress = append(progress, p)
	})

	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	items := result.Groups[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, int64(10), items[0].ID)
	assert.Equal(t, int64(11), items[1].ID)
	assert.InDelta(t, 0.9, items[1].SimilarityToAnchor, 0.001)
	assert.Len(t, progress, 3)
}

func TestSearchByRange_MatchesOutsideRange(t *testing.T) {
	s := rangeCatalog()
	s.Items = append(s.Items, product(99, "Computers", unit(0.99)))
	d := newDetector(s, nil, nil)

	result, err := d.SearchByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75},
		FromID:  10,
		ToID:    11,
	}, nil)

	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	require.Len(t, result.Groups[0].Items, 3)
	assert.Equal(t, int64(99), result.Groups[0].Items[1].ID)
	assert.Equal(t, int64(12), result.Groups[0].Items[2].ID)
}

func TestSearchByRange_ValidationFailOpenDropsGroup(t *testing.T) {
	judge := &MockLLM{Err: errors.New("judge timeout")}
	d := newDetector(rangeCatalog(), nil, judge)

	progressCount := 0
	result, err := d.SearchByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75, UseValidation: true},
		FromID:  10,
		ToID:    13,
	}, func(model.ProgressEvent) { progressCount++ })

	require.NoError(t, err)
	assert.Empty(t, result.Groups)
	assert.Equal(t, 0, result.Summary.DuplicateCount)
	assert.True(t, result.Config.ValidationUsed)
	assert.Equal(t, 4, progressCount)
	// 12 was consumed by the rejected group and is never judged again.
	assert.Len(t, judge.Prompts, 1)
}

func TestSearchByRange_ConfirmedGroup(t *testing.T) {
	judge := &MockLLM{Response: confirmResponse}
	d := newDetector(rangeCatalog(), nil, judge)

	result, err := d.SearchByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75, UseValidation: true, Level: model.LevelStrict},
		FromID:  10,
		ToID:    13,
	}, nil)

	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Equal(t, model.StatusConfirmed, group.Status)
	require.NotNil(t, group.Confidence)
	assert.Equal(t, 88.0, *group.Confidence)
	require.NotNil(t, group.Verdict)
	assert.Equal(t, []string{"T41"}, group.Verdict.CommonSpecs)
	require.Len(t, judge.Prompts, 1)
	assert.Contains(t, judge.Prompts[0], "STRICT criterion")
}

func TestSearchByRange_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  model.RangeSearch
		kind string
	}{
		{"from after to", model.RangeSearch{Options: model.Options{Threshold: 0.75}, FromID: 5, ToID: 3}, KindInvalidRange},
		{"zero id", model.RangeSearch{Options: model.Options{Threshold: 0.75}, FromID: 0, ToID: 3}, KindInvalidRange},
		{"threshold above one", model.RangeSearch{Options: model.Options{Threshold: 1.5}, FromID: 1, ToID: 3}, KindInvalidThreshold},
		{"negative threshold", model.RangeSearch{Options: model.Options{Threshold: -0.1}, FromID: 1, ToID: 3}, KindInvalidThreshold},
		{"unknown level", model.RangeSearch{Options: model.Options{Threshold: 0.75, Level: "extreme"}, FromID: 1, ToID: 3}, KindInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := rangeCatalog()
			d := newDetector(s, nil, nil)

			_, err := d.SearchByRange(context.Background(), tt.req, nil)

			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.True(t, IsInvalidInput(err))
			assert.Equal(t, 0, s.Calls, "store must not be touched")
		})
	}
}

func TestSearchByRange_StoreError(t *testing.T) {
	d := newDetector(&MockStore{Err: errors.New("connection refused")}, nil, nil)

	_, err := d.SearchByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75},
		FromID:  1,
		ToID:    3,
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, KindStore, KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSearchByRange_EmptyRange(t *testing.T) {
	d := newDetector(rangeCatalog(), nil, nil)

	calls := 0
	result, err := d.SearchByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75},
		FromID:  500,
		ToID:    600,
	}, func(model.ProgressEvent) { calls++ })

	require.NoError(t, err)
	assert.Empty(t, result.Groups)
	assert.Equal(t, 0, calls)
}

func TestStreamByRange_SingleTerminalEvent(t *testing.T) {
	d := newDetector(rangeCatalog(), nil, nil)

	var events []model.ScanEvent
	for ev := range d.StreamByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75},
		FromID:  10,
		ToID:    13,
	}) {
		events = append(events, ev)
	}

	require.Len(t, events, 5)
	for i, ev := range events[:4] {
		assert.Equal(t, model.ScanEventProgress, ev.Type)
		assert.Equal(t, i+1, ev.Progress.Current)
	}
	last := events[4]
	assert.True(t, last.Terminal())
	assert.Equal(t, model.ScanEventComplete, last.Type)
	require.NotNil(t, last.Result)
	assert.Len(t, last.Result.Groups, 1)
}

func TestStreamByRange_ErrorEvent(t *testing.T) {
	d := newDetector(rangeCatalog(), nil, nil)

	var events []model.ScanEvent
	for ev := range d.StreamByRange(context.Background(), model.RangeSearch{
		Options: model.Options{Threshold: 0.75},
		FromID:  13,
		ToID:    10,
	}) {
		events = append(events, ev)
	}

	require.Len(t, events, 1)
	assert.Equal(t, model.ScanEventError, events[0].Type)
	assert.Equal(t, KindInvalidRange, KindOf(events[0].Err))
}

func TestStreamByRange_CanceledContextCloses(t *testing.T) {
	d := newDetector(rangeCatalog(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for ev := range d.StreamByRange(ctx, model.RangeSearch{
		Options: model.Options{Threshold: 0.75},
		FromID:  10,
		ToID:    13,
	}) {
		assert.NotEqual(t, model.ScanEventComplete, ev.Type)
	}
}

func TestSearchByCategory(t *testing.T) {
	s := &MockStore{Items: []model.CatalogItem{
		product(1, "Computers", []float32{1, 0}),
		product(2, "Phones", []float32{1, 0}),
		product(3, "Computers", unit(0.9)),
		product(4, "Computers", []float32{0, 1}),
		product(5, "Computers", []float32{0.1, 0.995}),
	}}

	t.Run("without validation", func(t *testing.T) {
		d := newDetector(s, nil, nil)

		result, err := d.SearchByCategory(context.Background(), model.CategorySearch{
			Options:  model.Options{Threshold: 0.75},
			Category: "Computers",
		})

		require.NoError(t, err)
		require.Len(t, result.Groups, 2)
		assert.Equal(t, int64(1), result.Groups[0].Items[0].ID)
		assert.Equal(t, int64(3), result.Groups[0].Items[1].ID)
		assert.Equal(t, int64(4), result.Groups[1].Items[0].ID)
		assert.Equal(t, 2, result.Groups[1].ID)
		assert.Equal(t, 4, result.Summary.DuplicateCount)
	})

	t.Run("judge keeps only confirmed clusters", func(t *testing.T) {
		judge := &MockLLM{ResponseQueue: []string{
			confirmResponse,
			`{"is_duplicate": false, "confidence": 20, "rationale": "different"}`,
		}}
		d := newDetector(s, nil, judge)

		result, err := d.SearchByCategory(context.Background(), model.CategorySearch{
			Options:  model.Options{Threshold: 0.75, UseValidation: true, Level: model.LevelLenient},
			Category: "Computers",
		})

		require.NoError(t, err)
		require.Len(t, result.Groups, 1)
		assert.Equal(t, model.StatusConfirmed, result.Groups[0].Status)
		assert.Equal(t, 2, result.Summary.DuplicateCount)
		require.Len(t, judge.Prompts, 2)
		assert.Contains(t, judge.Prompts[0], "LENIENT criterion")
	})

	t.Run("level defaults to moderate", func(t *testing.T) {
		judge := &MockLLM{Response: confirmResponse}
		d := newDetector(s, nil, judge)

		result, err := d.SearchByCategory(context.Background(), model.CategorySearch{
			Options:  model.Options{Threshold: 0.75, UseValidation: true},
			Category: "Computers",
		})

		require.NoError(t, err)
		assert.Len(t, result.Groups, 2)
		require.Len(t, judge.Prompts, 2)
		for _, prompt := range judge.Prompts {
			assert.Contains(t, prompt, "MODERATE criterion")
		}
	})
}

func TestSearchByCategory_EmptyCategory(t *testing.T) {
	d := newDetector(&MockStore{}, nil, nil)

	_, err := d.SearchByCategory(context.Background(), model.CategorySearch{
		Options:  model.Options{Threshold: 0.75},
		Category: "  ",
	})

	assert.Equal(t, KindInvalidRequest, KindOf(err))
}
