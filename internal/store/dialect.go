package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// vectorScanner reads an embedding column that may be NULL.
type vectorScanner interface {
	sql.Scanner
	Slice() []float32
}

// dialect holds what differs between the SQL backends.
type dialect struct {
	driverName   string
	schema       []string
	hasEmbedding string
	rebind       func(query string) string
	encodeVector func(v []float32) (any, error)
	newVector    func() vectorScanner
}

var postgresDialect = dialect{
	driverName:   "postgres",
	schema:       postgresSchema,
	hasEmbedding: "embedding IS NOT NULL",
	rebind:       dollarPlaceholders,
	encodeVector: func(v []float32) (any, error) {
		if len(v) == 0 {
			return nil, nil
		}
		return pgvector.NewVector(v), nil
	},
	newVector: func() vectorScanner { return &nullVector{} },
}

var sqliteDialect = dialect{
	driverName:   "sqlite",
	schema:       sqliteSchema,
	hasEmbedding: "embedding IS NOT NULL AND embedding <> '' AND embedding <> '[]'",
	rebind:       func(query string) string { return query },
	encodeVector: func(v []float32) (any, error) {
		if len(v) == 0 {
			return nil, nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	},
	newVector: func() vectorScanner { return &jsonVector{} },
}

// dollarPlaceholders rewrites ? placeholders as $1, $2, ...
func dollarPlaceholders(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// nullVector is a pgvector column that may be NULL.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

func (n *nullVector) Slice() []float32 {
	if !n.valid {
		return nil
	}
	return n.vec.Slice()
}

// jsonVector is an embedding stored as a JSON array in a TEXT column.
// Unreadable values scan as "no embedding".
type jsonVector struct {
	vec []float32
}

func (j *jsonVector) Scan(src any) error {
	j.vec = nil
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported embedding column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil
	}
	j.vec = vec
	return nil
}

func (j *jsonVector) Slice() []float32 {
	return j.vec
}
