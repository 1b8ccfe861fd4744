package model

import (
	"fmt"
	"strings"
)

// Level controls how conservatively the judge treats differences between items.
type Level string

const (
	LevelStrict   Level = "strict"
	LevelModerate Level = "moderate"
	LevelLenient  Level = "lenient"
)

const DefaultLevel = LevelModerate

// ParseLevel maps user input to a Level. Empty input yields DefaultLevel.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultLevel, nil
	case LevelStrict:
		return LevelStrict, nil
	case LevelModerate:
		return LevelModerate, nil
	case LevelLenient:
		return LevelLenient, nil
	default:
		return "", fmt.Errorf("unknown validation level %q (want strict, moderate or lenient)", s)
	}
}

// Verdict is the judge's answer for one candidate group.
type Verdict struct {
	IsDuplicate    bool     `json:"isDuplicate"`
	Confidence     float64  `json:"confidence"`
	Rationale      string   `json:"rationale"`
	ProductType    string   `json:"productType,omitempty"`
	CommonSpecs    []string `json:"commonSpecs"`
	Differences    []string `json:"differences"`
	Recommendation string   `json:"recommendation"`
}

// UnavailableVerdict is the negative verdict used whenever no judgement could be obtained.
func UnavailableVerdict(reason string) Verdict {
	return Verdict{
		IsDuplicate: false,
		Confidence:  0,
		Rationale:   "unavailable: " + reason,
		CommonSpecs: []string{},
		Differences: []string{},
	}
}

// Unavailable reports whether v is a fail-open placeholder rather than a judgement.
func (v Verdict) Unavailable() bool {
	return strings.HasPrefix(v.Rationale, "unavailable")
}
