package domain

// SourceItem is one analyzed input unit (a scraped or uploaded video).
type SourceItem struct {
	SourceID          string   `json:"source_id"`
	Transcript        string   `json:"transcript"`
	Caption           string   `json:"caption"`
	VisualDescriptors []string `json:"visual_descriptors"`
	EngagementSignal  *float64 `json:"engagement_signal,omitempty"`
}

// Engagement returns the engagement signal or zero when absent.
func (s SourceItem) Engagement() float64 {
	if s.EngagementSignal == nil {
		return 0
	}
	return *s.EngagementSignal
}

// Tone enumerates the dominant register of a source.
type Tone string

const (
	ToneEducational   Tone = "educational"
	ToneEntertaining  Tone = "entertaining"
	ToneInspirational Tone = "inspirational"
	TonePromotional   Tone = "promotional"
	ToneNarrative     Tone = "narrative"
)

// Tones lists every tone in tie-break order.
var Tones = []Tone{ToneEducational, ToneEntertaining, ToneInspirational, TonePromotional, ToneNarrative}

// PacingHint enumerates how quickly a source moves between beats.
type PacingHint string

const (
	PacingFast     PacingHint = "fast"
	PacingModerate PacingHint = "moderate"
	PacingSlow     PacingHint = "slow"
)

// StyleProfile is the normalized summary derived from exactly one SourceItem.
type StyleProfile struct {
	SourceID         string     `json:"source_id"`
	Theme            string     `json:"theme"`
	Tone             Tone       `json:"tone"`
	VisualStyle      string     `json:"visual_style"`
	PacingHint       PacingHint `json:"pacing_hint"`
	EngagementSignal float64    `json:"engagement_signal"`
}
