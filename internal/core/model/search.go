package model

const DefaultThreshold = 0.75

// Options are shared by every search strategy.
type Options struct {
	Threshold     float64 `json:"threshold"`
	UseValidation bool    `json:"useValidation"`
	Level         Level   `json:"level,omitempty"`
}

type DescriptionSearch struct {
	Options
	Query string `json:"query"`
}

type RangeSearch struct {
	Options
	FromID int64 `json:"fromId"`
	ToID   int64 `json:"toId"`
}

type CategorySearch struct {
	Options
	Category string `json:"category"`
}

// Group status values reported to callers.
const (
	StatusConfirmed         = "confirmed"
	StatusPossibleDuplicate = "possible_duplicate"
	// StatusHighlySuspicious is reserved for confidence banding and is never assigned.
	StatusHighlySuspicious = "highly_suspicious"
)

type Result struct {
	Config  ResultConfig  `json:"config"`
	Summary ResultSummary `json:"summary"`
	Groups  []GroupView   `json:"groups"`
}

type ResultConfig struct {
	Threshold      float64 `json:"threshold"`
	ValidationUsed bool    `json:"validationUsed"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

type ResultSummary struct {
	GroupCount     int `json:"groupCount"`
	DuplicateCount int `json:"duplicateCount"`
}

type GroupView struct {
	ID         int        `json:"id"`
	Confidence *float64   `json:"confidence"`
	Status     string     `json:"status"`
	Rationale  *string    `json:"rationale"`
	Verdict    *Verdict   `json:"verdict,omitempty"`
	Items      []ItemView `json:"items"`
}

type ItemView struct {
	ID                 int64   `json:"id"`
	Code               string  `json:"code"`
	Description        string  `json:"description"`
	Brand              string  `json:"brand"`
	Category           string  `json:"category"`
	Subcategory        string  `json:"subcategory,omitempty"`
	SimilarityToAnchor float64 `json:"similarityToAnchor"`
}

// NewGroupView flattens a group into its reported shape. id is 1-based.
func NewGroupView(id int, g DuplicateGroup) GroupView {
	view := GroupView{
		ID:     id,
		Status: StatusPossibleDuplicate,
		Items:  make([]ItemView, 0, len(g.Members)),
	}
	if g.Verdict != nil {
		v := *g.Verdict
		confidence := v.Confidence
		rationale := v.Rationale
		view.Confidence = &confidence
		view.Rationale = &rationale
		view.Verdict = &v
		if v.IsDuplicate {
			view.Status = StatusConfirmed
		}
	}
	for _, m := range g.Members {
		view.Items = append(view.Items, ItemView{
			ID:                 m.Item.ID,
			Code:               m.Item.Code,
			Description:        m.Item.Description,
			Brand:              m.Item.Brand,
			Category:           m.Item.Category,
			Subcategory:        m.Item.Subcategory,
			SimilarityToAnchor: m.Score,
		})
	}
	return view
}

// ProgressEvent is pushed once per processed item of a range scan.
type ProgressEvent struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

type ScanEventType string

const (
	ScanEventProgress ScanEventType = "progress"
	ScanEventComplete ScanEventType = "complete"
	ScanEventError    ScanEventType = "error"
)

// ScanEvent is one element of a streamed range scan. Exactly one of
// Progress, Result or Err is set, matching Type.
type ScanEvent struct {
	Type     ScanEventType
	Progress *ProgressEvent
	Result   *Result
	Err      error
}

func (e ScanEvent) Terminal() bool {
	return e.Type != ScanEventProgress
}
