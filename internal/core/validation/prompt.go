package validation

import (
	"fmt"
	"strings"

	"github.com/agenthands/catalog-dedupe/internal/config"
	"github.com/agenthands/catalog-dedupe/internal/core/model"
)

const defaultSystemPrompt = `You are an expert in product master data and duplicate detection in catalog databases.
Your task is to decide whether the products presented are the same article described in different ways.
You must answer with valid JSON.`

// defaultInstructions takes the enumerated products and the level criterion.
const defaultInstructions = `Analyze the following products and decide whether they are duplicates (the same product described in different ways):

%s
%s

Respond with a JSON object containing:
{
  "is_duplicate": boolean,
  "confidence": number from 0 to 100,
  "rationale": "short explanation",
  "product_type": "what the product is, if they are duplicates",
  "common_specs": ["specifications shared by all products"],
  "differences": ["differences found"],
  "recommendation": "how to unify the records or what to do next"
}`

var defaultCriteria = map[model.Level]string{
	model.LevelStrict:   "STRICT criterion: only consider them identical if they are exactly the same model, brand and specifications.",
	model.LevelModerate: "MODERATE criterion: consider them identical if they are the same product even when minor description details vary.",
	model.LevelLenient:  "LENIENT criterion: consider them identical if they are very similar products even if they have small differences.",
}

// withDefaults fills empty templates with the built-in prompts.
func withDefaults(p config.ValidationPrompts) config.ValidationPrompts {
	if p.System == "" {
		p.System = defaultSystemPrompt
	}
	if p.Instructions == "" {
		p.Instructions = defaultInstructions
	}
	if p.Strict == "" {
		p.Strict = defaultCriteria[model.LevelStrict]
	}
	if p.Moderate == "" {
		p.Moderate = defaultCriteria[model.LevelModerate]
	}
	if p.Lenient == "" {
		p.Lenient = defaultCriteria[model.LevelLenient]
	}
	return p
}

func criterion(p config.ValidationPrompts, level model.Level) string {
	switch level {
	case model.LevelStrict:
		return p.Strict
	case model.LevelLenient:
		return p.Lenient
	default:
		return p.Moderate
	}
}

func serializeItems(items []model.CatalogItem) string {
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Product %d:\n", i+1)
		fmt.Fprintf(&sb, "- ID: %d\n", it.ID)
		fmt.Fprintf(&sb, "- Code: %s\n", orUnspecified(it.Code))
		fmt.Fprintf(&sb, "- Description: %s\n", orUnspecified(it.Description))
		fmt.Fprintf(&sb, "- Brand: %s\n", orUnspecified(it.Brand))
		fmt.Fprintf(&sb, "- Category: %s\n", orUnspecified(it.Category))
	}
	return sb.String()
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not specified"
	}
	return s
}
