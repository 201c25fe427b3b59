package domain

import (
	"fmt"
	"strings"
)

// CompositionMode selects how profiles are combined into one script.
type CompositionMode string

const (
	ModeDirect           CompositionMode = "direct"
	ModeFusionBlend      CompositionMode = "fusion_blend"
	ModeFusionSequential CompositionMode = "fusion_sequential"
)

// ParseCompositionMode normalizes free-form input into a supported mode.
func ParseCompositionMode(raw string) (CompositionMode, error) {
	switch CompositionMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeDirect, "":
		return ModeDirect, nil
	case ModeFusionBlend, "blend":
		return ModeFusionBlend, nil
	case ModeFusionSequential, "sequential":
		return ModeFusionSequential, nil
	default:
		return "", fmt.Errorf("unsupported composition mode %q", raw)
	}
}

// GenerationScript is the provider-agnostic description of the media to generate.
type GenerationScript struct {
	CoreConcept      string          `json:"core_concept" jsonschema:"minLength=1" jsonschema_description:"The single idea the generated media conveys."`
	VisualStyle      string          `json:"visual_style" jsonschema_description:"Visual language the provider should render."`
	CameraDirectives []string        `json:"camera_directives" jsonschema_description:"Ordered camera and pacing directives."`
	DurationSeconds  int             `json:"duration_seconds" jsonschema:"minimum=1" jsonschema_description:"Requested duration; coerced per provider at submission."`
	FullPrompt       string          `json:"full_prompt" jsonschema:"minLength=1" jsonschema_description:"Natural-language instruction sent to the provider."`
	CompositionMode  CompositionMode `json:"composition_mode" jsonschema:"enum=direct,enum=fusion_blend,enum=fusion_sequential"`
	SourceCount      int             `json:"source_count" jsonschema:"minimum=1"`
	DominantTone     Tone            `json:"dominant_tone,omitempty" jsonschema:"enum=educational,enum=entertaining,enum=inspirational,enum=promotional,enum=narrative"`
}

// Validate checks the provider-independent invariants of a script.
func (s GenerationScript) Validate() error {
	if strings.TrimSpace(s.FullPrompt) == "" {
		return fmt.Errorf("%w: full_prompt is required", ErrInvalidRequest)
	}
	if s.SourceCount < 1 {
		return fmt.Errorf("%w: source_count must be at least 1", ErrInvalidRequest)
	}
	if s.DurationSeconds <= 0 {
		return fmt.Errorf("%w: duration_seconds must be positive", ErrInvalidRequest)
	}
	switch s.CompositionMode {
	case ModeDirect, ModeFusionBlend, ModeFusionSequential:
	default:
		return fmt.Errorf("%w: composition_mode %q is not supported", ErrInvalidRequest, s.CompositionMode)
	}
	return nil
}
