package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/driver"
)

// GraphStore keeps catalog items as :Product nodes in Memgraph with the
// embedding as a list property.
type GraphStore struct {
	Driver driver.GraphDriver
	Logger zerolog.Logger
}

func NewGraphStore(d driver.GraphDriver, logger zerolog.Logger) *GraphStore {
	return &GraphStore{
		Driver: d,
		Logger: logger.With().Str("component", "store").Str("driver", "memgraph").Logger(),
	}
}

func (g *GraphStore) Close() error {
	return g.Driver.Close(context.Background())
}

func (g *GraphStore) Migrate(ctx context.Context) error {
	return g.Driver.BuildIndices(ctx)
}

func (g *GraphStore) FindByIDRange(ctx context.Context, fromID, toID int64) ([]model.CatalogItem, error) {
	items, err := g.queryItems(ctx, driver.FindProductsByIDRangeQuery, map[string]interface{}{
		"from_id": fromID,
		"to_id":   toID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find products in range %d..%d: %w", fromID, toID, err)
	}
	return items, nil
}

func (g *GraphStore) FindByCategory(ctx context.Context, category string) ([]model.CatalogItem, error) {
	items, err := g.queryItems(ctx, driver.FindProductsByCategoryQuery, map[string]interface{}{
		"category": category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find products in category %q: %w", category, err)
	}
	return items, nil
}

func (g *GraphStore) FindAllWithEmbeddings(ctx context.Context) ([]model.CatalogItem, error) {
	items, err := g.queryItems(ctx, driver.FindProductsWithEmbeddingsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load products with embeddings: %w", err)
	}
	return items, nil
}

func (g *GraphStore) FindByID(ctx context.Context, id int64) (*model.CatalogItem, error) {
	items, err := g.queryItems(ctx, driver.FindProductByIDQuery, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to find product %d: %w", id, err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

func (g *GraphStore) List(ctx context.Context, limit int) ([]model.CatalogItem, error) {
	items, err := g.queryItems(ctx, driver.ListProductsQuery, map[string]interface{}{"limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return items, nil
}

func (g *GraphStore) CountActive(ctx context.Context) (int64, error) {
	return g.count(ctx, driver.CountActiveProductsQuery)
}

func (g *GraphStore) CountWithEmbeddings(ctx context.Context) (int64, error) {
	return g.count(ctx, driver.CountEmbeddedProductsQuery)
}

func (g *GraphStore) Categories(ctx context.Context) ([]string, error) {
	res, err := g.Driver.ExecuteQuery(ctx, driver.ProductCategoriesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		c, _ := rec.Get("category")
		categories = append(categories, asString(c))
	}
	return categories, nil
}

func (g *GraphStore) Upsert(ctx context.Context, items []model.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]interface{}, 0, len(items))
	for _, item := range items {
		updated := item.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		embedding := make([]interface{}, len(item.Embedding))
		for i, v := range item.Embedding {
			embedding[i] = float64(v)
		}
		rows = append(rows, map[string]interface{}{
			"id":              item.ID,
			"code":            item.Code,
			"description":     item.Description,
			"brand":           item.Brand,
			"category":        item.Category,
			"subcategory":     item.Subcategory,
			"active":          item.Active,
			"embedding":       embedding,
			"embedding_model": item.EmbeddingModel,
			"updated_ts":      updated.Unix(),
		})
	}

	if _, err := g.Driver.ExecuteQuery(ctx, driver.UpsertProductsQuery, map[string]interface{}{"items": rows}); err != nil {
		return fmt.Errorf("failed to upsert %d products: %w", len(items), err)
	}
	g.Logger.Debug().Int("items", len(items)).Msg("upserted products")
	return nil
}

func (g *GraphStore) count(ctx context.Context, query string) (int64, error) {
	res, err := g.Driver.ExecuteQuery(ctx, query, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	total, _ := res.Records[0].Get("total")
	return asInt64(total), nil
}

func (g *GraphStore) queryItems(ctx context.Context, query string, params map[string]interface{}) ([]model.CatalogItem, error) {
	res, err := g.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}
	items := make([]model.CatalogItem, 0, len(res.Records))
	for _, rec := range res.Records {
		items = append(items, recordToItem(rec))
	}
	return items, nil
}

func recordToItem(rec *neo4j.Record) model.CatalogItem {
	get := func(key string) interface{} {
		v, _ := rec.Get(key)
		return v
	}

	item := model.CatalogItem{
		ID:             asInt64(get("id")),
		Code:           asString(get("code")),
		Description:    asString(get("description")),
		Brand:          asString(get("brand")),
		Category:       asString(get("category")),
		Subcategory:    asString(get("subcategory")),
		EmbeddingModel: asString(get("embedding_model")),
		Embedding:      asFloat32s(get("embedding")),
	}
	if active, ok := get("active").(bool); ok {
		item.Active = active
	}
	if ts := asInt64(get("updated_ts")); ts > 0 {
		item.UpdatedAt = time.Unix(ts, 0).UTC()
	}
	return item
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asFloat32s(v interface{}) []float32 {
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return nil
	}
	out := make([]float32, 0, len(list))
	for _, x := range list {
		switch f := x.(type) {
		case float64:
			out = append(out, float32(f))
		case int64:
			out = append(out, float32(f))
		}
	}
	return out
}
