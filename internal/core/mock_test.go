package core

import (
	"context"
	"math"

	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/llm"
)

type MockStore struct {
	Items []model.CatalogItem
	Err   error
	Calls int
}

func (m *MockStore) FindByIDRange(ctx context.Context, fromID, toID int64) ([]model.CatalogItem, error) {
	return m.filter(func(c model.CatalogItem) bool { return c.ID >= fromID && c.ID <= toID })
}

func (m *MockStore) FindByCategory(ctx context.Context, category string) ([]model.CatalogItem, error) {
	return m.filter(func(c model.CatalogItem) bool { return c.Category == category })
}

func (m *MockStore) FindAllWithEmbeddings(ctx context.Context) ([]model.CatalogItem, error) {
	return m.filter(func(model.CatalogItem) bool { return true })
}

func (m *MockStore) filter(keep func(model.CatalogItem) bool) ([]model.CatalogItem, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.CatalogItem
	for _, c := range m.Items {
		if c.Active && c.HasEmbedding() && keep(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

type MockEmbedder struct {
	Vector []float32
	Err    error
	Calls  int
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Prompts       []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

// unit is a 2-d unit vector whose cosine with [1, 0] is cos.
func unit(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func product(id int64, category string, embedding []float32) model.CatalogItem {
	return model.CatalogItem{
		ID:          id,
		Code:        "SKU-" + string(rune('A'+id%26)),
		Description: "product",
		Brand:       "Acme",
		Category:    category,
		Active:      true,
		Embedding:   embedding,
	}
}
