// Package validation asks an LLM judge whether a candidate group of catalog
// items are the same product. It never fails: any problem with the judge
// degrades to a negative verdict.
package validation

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/agenthands/catalog-dedupe/internal/config"
	"github.com/agenthands/catalog-dedupe/internal/core/common"
	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/llm"
)

// Rationale suffixes of fail-open verdicts, see model.UnavailableVerdict.
const (
	ReasonNotConfigured = "judge not configured"
	ReasonCallFailed    = "judge call failed"
	ReasonBadResponse   = "judge response unparsable"
)

type Gateway struct {
	LLM         llm.LLMClient
	Prompts     config.ValidationPrompts
	Temperature float32
	Logger      zerolog.Logger
}

// NewGateway returns a gateway over client. A nil client is valid and
// produces "not configured" verdicts without any call.
func NewGateway(client llm.LLMClient, cfg config.ValidationConfig, logger zerolog.Logger) *Gateway {
	return &Gateway{
		LLM:         client,
		Prompts:     withDefaults(cfg.Prompts),
		Temperature: cfg.Temperature,
		Logger:      logger.With().Str("component", "validation").Logger(),
	}
}

func (g *Gateway) Configured() bool {
	return g != nil && g.LLM != nil
}

// BuildPrompt renders the user prompt for items at the given strictness.
func (g *Gateway) BuildPrompt(items []model.CatalogItem, level model.Level) string {
	return fmt.Sprintf(g.Prompts.Instructions, serializeItems(items), criterion(g.Prompts, level))
}

// Confirm asks the judge about items. It always returns a verdict.
func (g *Gateway) Confirm(ctx context.Context, items []model.CatalogItem, level model.Level) model.Verdict {
	if !g.Configured() {
		return model.UnavailableVerdict(ReasonNotConfigured)
	}

	response, err := g.LLM.Generate(ctx, g.BuildPrompt(items, level),
		llm.WithSystem(g.Prompts.System),
		llm.WithJSON(),
		llm.WithTemperature(g.Temperature),
	)
	if err != nil {
		g.Logger.Warn().
			Err(err).
			Int("items", len(items)).
			Str("level", string(level)).
			Msg("judge call failed, treating group as not duplicate")
		return model.UnavailableVerdict(ReasonCallFailed)
	}

	verdict, err := ParseVerdict(response)
	if err != nil {
		g.Logger.Warn().
			Err(err).
			Str("response", common.Truncate(response, 300)).
			Msg("judge response unparsable, treating group as not duplicate")
		return model.UnavailableVerdict(ReasonBadResponse)
	}

	g.Logger.Debug().
		Bool("is_duplicate", verdict.IsDuplicate).
		Float64("confidence", verdict.Confidence).
		Int("items", len(items)).
		Msg("judge verdict")
	return verdict
}

// ParseVerdict reads a judge response. Missing fields take their zero
// value; booleans and numbers encoded as strings are accepted.
func ParseVerdict(response string) (model.Verdict, error) {
	jsonStr, err := common.ExtractJSONObject(response)
	if err != nil {
		return model.Verdict{}, err
	}
	doc := gjson.Parse(jsonStr)

	confidence := lookup(doc, "confidence", "certainty").Float()
	if math.IsNaN(confidence) {
		confidence = 0
	}

	return model.Verdict{
		IsDuplicate:    lookup(doc, "is_duplicate", "isDuplicate").Bool(),
		Confidence:     math.Max(0, math.Min(100, confidence)),
		Rationale:      lookup(doc, "rationale", "explanation").String(),
		ProductType:    lookup(doc, "product_type", "productType").String(),
		CommonSpecs:    common.StringList(lookup(doc, "common_specs", "commonSpecs")),
		Differences:    common.StringList(lookup(doc, "differences")),
		Recommendation: lookup(doc, "recommendation").String(),
	}, nil
}

// lookup returns the first present key.
func lookup(doc gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := doc.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}
