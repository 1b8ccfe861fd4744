package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/core/similarity"
	"github.com/agenthands/catalog-dedupe/internal/core/validation"
	"github.com/agenthands/catalog-dedupe/internal/llm"
	"github.com/agenthands/catalog-dedupe/internal/store"
)

// Detector runs the three duplicate searches. It holds no per-request state
// and is safe for concurrent use.
type Detector struct {
	Store        store.RecordStore
	Embedder     llm.EmbedderClient
	Gateway      *validation.Gateway
	Logger       zerolog.Logger
	MaxResults   int
	DefaultLevel model.Level
}

func NewDetector(s store.RecordStore, embedder llm.EmbedderClient, gateway *validation.Gateway, logger zerolog.Logger) *Detector {
	return &Detector{
		Store:        s,
		Embedder:     embedder,
		Gateway:      gateway,
		Logger:       logger.With().Str("component", "detector").Logger(),
		MaxResults:   similarity.DefaultMaxResults,
		DefaultLevel: model.DefaultLevel,
	}
}

// SearchByDescription embeds query and returns the catalog items similar to
// it as a single group. With validation the judge verdict is attached to
// that group whatever it says.
func (d *Detector) SearchByDescription(ctx context.Context, req model.DescriptionSearch) (*model.Result, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: description query is empty", ErrInvalidRequest)
	}
	opts, err := d.normalize(req.Options)
	if err != nil {
		return nil, err
	}

	if d.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", ErrEmbeddingUnavailable)
	}
	queryVector, err := d.Embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty vector", ErrEmbeddingUnavailable)
	}

	candidates, err := d.Store.FindAllWithEmbeddings(ctx)
	if err != nil {
		return nil, storeError("load candidates", err)
	}

	matches := similarity.FindSimilar(queryVector, candidates, opts.Threshold, d.MaxResults)

	var groups []model.DuplicateGroup
	if len(matches) > 0 {
		group := model.DuplicateGroup{Members: matches}
		if opts.UseValidation {
			verdict := d.Gateway.Confirm(ctx, group.Items(), opts.Level)
			group.Verdict = &verdict
		}
		groups = append(groups, group)
	}

	d.Logger.Info().
		Int("candidates", len(candidates)).
		Int("matches", len(matches)).
		Float64("threshold", opts.Threshold).
		Dur("elapsed", time.Since(start)).
		Msg("description search finished")

	return buildResult(start, opts, groups, len(matches)), nil
}

// SearchByRange scans the items with ids in [FromID, ToID] in ascending id
// order and groups each with its matches from the whole catalog. progress,
// when not nil, is called once per range item before the result is returned.
//
// A request-local processed set makes the output a partition: an item that
// already belongs to an evaluated group is neither an anchor nor a match
// again, whether or not the judge kept that group.
func (d *Detector) SearchByRange(ctx context.Context, req model.RangeSearch, progress func(model.ProgressEvent)) (*model.Result, error) {
	start := time.Now()

	if req.FromID < 1 || req.ToID < 1 {
		return nil, fmt.Errorf("%w: ids must be >= 1 (got %d..%d)", ErrInvalidRange, req.FromID, req.ToID)
	}
	if req.FromID > req.ToID {
		return nil, fmt.Errorf("%w: fromId %d is greater than toId %d", ErrInvalidRange, req.FromID, req.ToID)
	}
	opts, err := d.normalize(req.Options)
	if err != nil {
		return nil, err
	}

	logger := d.Logger.With().
		Str("scan_id", uuid.NewString()).
		Int64("from_id", req.FromID).
		Int64("to_id", req.ToID).
		Logger()

	anchors, err := d.Store.FindByIDRange(ctx, req.FromID, req.ToID)
	if err != nil {
		return nil, storeError("load range", err)
	}
	candidates, err := d.Store.FindAllWithEmbeddings(ctx)
	if err != nil {
		return nil, storeError("load candidates", err)
	}

	logger.Info().Int("range_items", len(anchors)).Int("candidates", len(candidates)).Msg("range scan started")

	processed := make(map[int64]bool)
	var groups []model.DuplicateGroup
	duplicates := 0
	total := len(anchors)

	for i, anchor := range anchors {
		if err := ctx.Err(); err != nil {
			logger.Warn().Int("position", i+1).Msg("range scan abandoned")
			return nil, err
		}

		if !processed[anchor.ID] && anchor.HasEmbedding() {
			group, keep := d.evaluateAnchor(ctx, anchor, candidates, processed, opts, logger)
			if keep {
				groups = append(groups, group)
				duplicates += len(group.Members)
			}
		}

		if progress != nil {
			current := i + 1
			progress(model.ProgressEvent{
				Current:    current,
				Total:      total,
				Percentage: float64(current) / float64(total) * 100,
			})
		}
	}

	logger.Info().
		Int("groups", len(groups)).
		Int("duplicates", duplicates).
		Dur("elapsed", time.Since(start)).
		Msg("range scan finished")

	return buildResult(start, opts, groups, duplicates), nil
}

// evaluateAnchor builds the candidate group for one range item and decides
// whether it is reported. Every member is marked processed either way.
func (d *Detector) evaluateAnchor(ctx context.Context, anchor model.CatalogItem, candidates []model.CatalogItem, processed map[int64]bool, opts model.Options, logger zerolog.Logger) (model.DuplicateGroup, bool) {
	pool := make([]model.CatalogItem, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != anchor.ID && !processed[c.ID] {
			pool = append(pool, c)
		}
	}

	matches := similarity.FindSimilar(anchor.Embedding, pool, opts.Threshold, d.MaxResults)
	if len(matches) == 0 {
		return model.DuplicateGroup{}, false
	}

	group := model.DuplicateGroup{
		Members: append([]model.SimilarityPair{{Item: anchor, Score: 1.0}}, matches...),
	}
	for _, id := range group.IDs() {
		processed[id] = true
	}

	if !opts.UseValidation {
		return group, true
	}

	verdict := d.Gateway.Confirm(ctx, group.Items(), opts.Level)
	group.Verdict = &verdict
	if !verdict.IsDuplicate {
		logger.Debug().
			Int64("anchor_id", anchor.ID).
			Int("members", len(group.Members)).
			Str("rationale", verdict.Rationale).
			Msg("judge rejected candidate group")
		return group, false
	}
	return group, true
}

// StreamByRange runs SearchByRange and delivers its progress followed by
// exactly one terminal event. The channel is closed after the terminal
// event, or early when ctx is done.
func (d *Detector) StreamByRange(ctx context.Context, req model.RangeSearch) <-chan model.ScanEvent {
	events := make(chan model.ScanEvent)

	go func() {
		defer close(events)

		send := func(ev model.ScanEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		result, err := d.SearchByRange(ctx, req, func(p model.ProgressEvent) {
			send(model.ScanEvent{Type: model.ScanEventProgress, Progress: &p})
		})
		if err != nil {
			send(model.ScanEvent{Type: model.ScanEventError, Err: err})
			return
		}
		send(model.ScanEvent{Type: model.ScanEventComplete, Result: result})
	}()

	return events
}

// SearchByCategory clusters the items of one category and, with validation,
// keeps only the clusters the judge confirms.
func (d *Detector) SearchByCategory(ctx context.Context, req model.CategorySearch) (*model.Result, error) {
	start := time.Now()

	if strings.TrimSpace(req.Category) == "" {
		return nil, fmt.Errorf("%w: category is empty", ErrInvalidRequest)
	}
	opts, err := d.normalize(req.Options)
	if err != nil {
		return nil, err
	}

	items, err := d.Store.FindByCategory(ctx, req.Category)
	if err != nil {
		return nil, storeError("load category", err)
	}

	clusters := similarity.ClusterDuplicates(items, opts.Threshold)

	groups := clusters
	if opts.UseValidation {
		groups = make([]model.DuplicateGroup, 0, len(clusters))
		for _, c := range clusters {
			verdict := d.Gateway.Confirm(ctx, c.Items(), opts.Level)
			if verdict.IsDuplicate {
				c.Verdict = &verdict
				groups = append(groups, c)
			}
		}
	}

	duplicates := 0
	for _, g := range groups {
		duplicates += len(g.Members)
	}

	d.Logger.Info().
		Str("category", req.Category).
		Int("items", len(items)).
		Int("clusters", len(clusters)).
		Int("groups", len(groups)).
		Dur("elapsed", time.Since(start)).
		Msg("category search finished")

	return buildResult(start, opts, groups, duplicates), nil
}

// normalize rejects out-of-range thresholds and resolves the level.
func (d *Detector) normalize(opts model.Options) (model.Options, error) {
	if math.IsNaN(opts.Threshold) || opts.Threshold < 0 || opts.Threshold > 1 {
		return opts, fmt.Errorf("%w: %v is outside [0, 1]", ErrInvalidThreshold, opts.Threshold)
	}

	if opts.Level == "" {
		opts.Level = d.DefaultLevel
	}
	level, err := model.ParseLevel(string(opts.Level))
	if err != nil {
		return opts, fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}
	opts.Level = level
	return opts, nil
}

func buildResult(start time.Time, opts model.Options, groups []model.DuplicateGroup, duplicates int) *model.Result {
	views := make([]model.GroupView, 0, len(groups))
	for i, g := range groups {
		views = append(views, model.NewGroupView(i+1, g))
	}
	return &model.Result{
		Config: model.ResultConfig{
			Threshold:      opts.Threshold,
			ValidationUsed: opts.UseValidation,
			ElapsedSeconds: time.Since(start).Seconds(),
		},
		Summary: model.ResultSummary{
			GroupCount:     len(views),
			DuplicateCount: duplicates,
		},
		Groups: views,
	}
}
