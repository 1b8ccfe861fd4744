package driver

var IndexQueries = []string{
	"CREATE INDEX ON :Product;",
	"CREATE INDEX ON :Product(id);",
	"CREATE INDEX ON :Product(category);",
}

const productReturn = `
		RETURN p.id AS id, p.code AS code, p.description AS description,
			p.brand AS brand, p.category AS category, p.subcategory AS subcategory,
			p.active AS active, p.embedding AS embedding,
			p.embedding_model AS embedding_model, p.updated_ts AS updated_ts
`

const hasEmbedding = `p.active = true AND p.embedding IS NOT NULL AND size(p.embedding) > 0`

const (
	FindProductsByIDRangeQuery = `
		MATCH (p:Product)
		WHERE p.id >= $from_id AND p.id <= $to_id AND ` + hasEmbedding + productReturn + `
		ORDER BY id ASC
	`

	FindProductsByCategoryQuery = `
		MATCH (p:Product {category: $category})
		WHERE ` + hasEmbedding + productReturn + `
		ORDER BY id ASC
	`

	FindProductsWithEmbeddingsQuery = `
		MATCH (p:Product)
		WHERE ` + hasEmbedding + productReturn + `
		ORDER BY id ASC
	`

	FindProductByIDQuery = `
		MATCH (p:Product {id: $id})` + productReturn

	ListProductsQuery = `
		MATCH (p:Product)
		WHERE p.active = true` + productReturn + `
		ORDER BY id ASC
		LIMIT $limit
	`

	CountActiveProductsQuery = `
		MATCH (p:Product)
		WHERE p.active = true
		RETURN count(p) AS total
	`

	CountEmbeddedProductsQuery = `
		MATCH (p:Product)
		WHERE ` + hasEmbedding + `
		RETURN count(p) AS total
	`

	ProductCategoriesQuery = `
		MATCH (p:Product)
		WHERE p.active = true AND p.category <> ''
		RETURN DISTINCT p.category AS category
		ORDER BY category ASC
	`

	UpsertProductsQuery = `
		UNWIND $items AS item
		MERGE (p:Product {id: item.id})
		SET p.code = item.code,
			p.description = item.description,
			p.brand = item.brand,
			p.category = item.category,
			p.subcategory = item.subcategory,
			p.active = item.active,
			p.embedding = item.embedding,
			p.embedding_model = item.embedding_model,
			p.updated_ts = item.updated_ts
	`
)
