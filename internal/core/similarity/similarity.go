// Package similarity scores, filters and clusters catalog items by embedding.
package similarity

import (
	"math"
	"sort"

	"github.com/agenthands/catalog-dedupe/internal/core/model"
)

// DefaultMaxResults caps FindSimilar when the caller passes no limit.
const DefaultMaxResults = 50

// CosineSimilarity returns dot(a,b)/(|a||b|). Vectors of different length,
// empty vectors and zero vectors score 0 against everything.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	// sqrt(n*n) == n exactly, so identical vectors score exactly 1.
	score := dot / math.Sqrt(normA*normB)
	return math.Max(-1, math.Min(1, score))
}

// FindSimilar scores every candidate against target and returns those with
// score >= threshold, best first. Ties keep candidate order. Candidates
// without an embedding are skipped.
func FindSimilar(target []float32, candidates []model.CatalogItem, threshold float64, maxResults int) []model.SimilarityPair {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var matches []model.SimilarityPair
	for _, c := range candidates {
		if !c.HasEmbedding() {
			continue
		}
		score := CosineSimilarity(target, c.Embedding)
		if score >= threshold {
			matches = append(matches, model.SimilarityPair{Item: c, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

// ClusterDuplicates partitions items greedily. Each unassigned item seeds a
// group and pulls in every later unassigned item whose similarity to the
// seed (not to other members) is >= threshold. Groups that did not grow past
// the seed are dropped.
func ClusterDuplicates(items []model.CatalogItem, threshold float64) []model.DuplicateGroup {
	var groups []model.DuplicateGroup
	assigned := make(map[int64]bool, len(items))

	for i, seed := range items {
		if assigned[seed.ID] || !seed.HasEmbedding() {
			continue
		}
		assigned[seed.ID] = true

		group := model.DuplicateGroup{
			Members: []model.SimilarityPair{{Item: seed, Score: 1.0}},
		}

		for _, other := range items[i+1:] {
			if assigned[other.ID] || !other.HasEmbedding() {
				continue
			}
			score := CosineSimilarity(seed.Embedding, other.Embedding)
			if score >= threshold {
				group.Members = append(group.Members, model.SimilarityPair{Item: other, Score: score})
				assigned[other.ID] = true
			}
		}

		if len(group.Members) > 1 {
			groups = append(groups, group)
		}
	}

	return groups
}
