package model

import "time"

// CatalogItem is a read-only view of a catalog record as served by the record store.
type CatalogItem struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Description    string    `json:"description"`
	Brand          string    `json:"brand"`
	Category       string    `json:"category"`
	Subcategory    string    `json:"subcategory,omitempty"`
	Active         bool      `json:"active"`
	Embedding      []float32 `json:"embedding,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// HasEmbedding reports whether the item can take part in a comparison.
func (c CatalogItem) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

type SimilarityPair struct {
	Item  CatalogItem `json:"item"`
	Score float64     `json:"score"`
}

// DuplicateGroup is an ordered set of items clustered around the first member.
type DuplicateGroup struct {
	Members []SimilarityPair `json:"members"`
	Verdict *Verdict         `json:"verdict,omitempty"`
}

func (g DuplicateGroup) Items() []CatalogItem {
	items := make([]CatalogItem, len(g.Members))
	for i, m := range g.Members {
		items[i] = m.Item
	}
	return items
}

func (g DuplicateGroup) IDs() []int64 {
	ids := make([]int64, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.Item.ID
	}
	return ids
}

// Confirmed is true only when a judge verdict marked the group as duplicate.
func (g DuplicateGroup) Confirmed() bool {
	return g.Verdict != nil && g.Verdict.IsDuplicate
}

// Stats describes the catalog as seen by the record store.
type Stats struct {
	TotalProducts          int64   `json:"totalProducts"`
	ProductsWithEmbeddings int64   `json:"productsWithEmbeddings"`
	EmbeddingPercentage    float64 `json:"embeddingPercentage"`
}
