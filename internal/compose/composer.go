// Package compose turns StyleProfiles into provider-agnostic GenerationScripts.
package compose

import (
	"fmt"
	"strings"

	"mediagen/internal/domain"
)

const (
	MinFusionSources = 2
	MaxFusionSources = 5
)

var pacingDirectives = map[domain.PacingHint][]string{
	domain.PacingFast:     {"quick cuts between tight close-ups", "handheld tracking shot with high energy"},
	domain.PacingModerate: {"steady medium shots with smooth transitions", "gentle push-in on the subject"},
	domain.PacingSlow:     {"long lingering wide shot", "slow dolly movement with soft focus pulls"},
}

var toneDirections = map[domain.Tone]string{
	domain.ToneEducational:   "clear and instructive, every beat explains something",
	domain.ToneEntertaining:  "playful and surprising, built around a payoff",
	domain.ToneInspirational: "uplifting and aspirational, building toward a hopeful moment",
	domain.TonePromotional:   "polished and persuasive, the subject is the hero",
	domain.ToneNarrative:     "story-driven with a clear beginning, middle and end",
}

// Compose builds a GenerationScript from profiles using the given mode. It
// never contacts a provider; targetDuration is validated per provider later.
func Compose(profiles []domain.StyleProfile, mode domain.CompositionMode, targetDuration int) (domain.GenerationScript, error) {
	if err := checkSourceCount(mode, len(profiles)); err != nil {
		return domain.GenerationScript{}, err
	}
	if targetDuration <= 0 {
		return domain.GenerationScript{}, &domain.CompositionError{Reason: domain.CompositionInvalidDuration, Mode: mode, Count: len(profiles)}
	}

	var script domain.GenerationScript
	switch mode {
	case domain.ModeDirect:
		script = composeDirect(profiles[0])
	case domain.ModeFusionBlend:
		script = composeBlend(profiles)
	case domain.ModeFusionSequential:
		script = composeSequential(profiles)
	}
	script.CompositionMode = mode
	script.SourceCount = len(profiles)
	script.DurationSeconds = targetDuration
	script.FullPrompt = buildPrompt(script)
	if err := script.Validate(); err != nil {
		return domain.GenerationScript{}, fmt.Errorf("compose: %w", err)
	}
	return script, nil
}

func checkSourceCount(mode domain.CompositionMode, n int) error {
	switch mode {
	case domain.ModeDirect:
		if n != 1 {
			return &domain.CompositionError{Reason: domain.CompositionWrongSourceCount, Mode: mode, Count: n}
		}
	case domain.ModeFusionBlend, domain.ModeFusionSequential:
		if n < MinFusionSources {
			return &domain.CompositionError{Reason: domain.CompositionTooFewSources, Mode: mode, Count: n}
		}
		if n > MaxFusionSources {
			return &domain.CompositionError{Reason: domain.CompositionTooManySources, Mode: mode, Count: n}
		}
	default:
		return &domain.CompositionError{Reason: domain.CompositionUnsupportedMode, Mode: mode, Count: n}
	}
	return nil
}

// MaxSources returns how many sources a mode accepts.
func MaxSources(mode domain.CompositionMode) int {
	if mode == domain.ModeDirect {
		return 1
	}
	return MaxFusionSources
}

func composeDirect(p domain.StyleProfile) domain.GenerationScript {
	return domain.GenerationScript{
		CoreConcept:      fmt.Sprintf("A short piece about %s", p.Theme),
		VisualStyle:      p.VisualStyle,
		CameraDirectives: append([]string(nil), pacingDirectives[normalizePacing(p.PacingHint)]...),
		DominantTone:     p.Tone,
	}
}

func composeBlend(profiles []domain.StyleProfile) domain.GenerationScript {
	dominant := DominantProfile(profiles)
	themes := make([]string, len(profiles))
	styles := make([]string, len(profiles))
	for i, p := range profiles {
		themes[i] = p.Theme
		styles[i] = p.VisualStyle
	}
	visual := fmt.Sprintf("combine the visual languages of %s into one continuous scene", joinList(styles))
	return domain.GenerationScript{
		CoreConcept:      fmt.Sprintf("%s, united by one %s thread", joinList(themes), dominant.Tone),
		VisualStyle:      visual,
		CameraDirectives: append([]string(nil), pacingDirectives[normalizePacing(dominant.PacingHint)]...),
		DominantTone:     dominant.Tone,
	}
}

func composeSequential(profiles []domain.StyleProfile) domain.GenerationScript {
	themes := make([]string, len(profiles))
	styles := make([]string, len(profiles))
	directives := make([]string, len(profiles))
	for i, p := range profiles {
		themes[i] = p.Theme
		styles[i] = p.VisualStyle
		pacing := normalizePacing(p.PacingHint)
		directives[i] = fmt.Sprintf("Segment %d [%s pacing, %s]: %s, %s; %s",
			i+1, pacing, p.Tone, p.Theme, p.VisualStyle, pacingDirectives[pacing][0])
	}
	return domain.GenerationScript{
		CoreConcept:      fmt.Sprintf("A sequence of %d distinct beats: %s", len(profiles), strings.Join(themes, " -> ")),
		VisualStyle:      strings.Join(styles, " | "),
		CameraDirectives: directives,
	}
}

// DominantProfile returns the profile with the highest engagement; ties go to
// the earliest profile in input order.
func DominantProfile(profiles []domain.StyleProfile) domain.StyleProfile {
	best := profiles[0]
	for _, p := range profiles[1:] {
		if p.EngagementSignal > best.EngagementSignal {
			best = p
		}
	}
	return best
}

func buildPrompt(s domain.GenerationScript) string {
	var b strings.Builder
	b.WriteString(s.CoreConcept)
	b.WriteString(".")
	if s.VisualStyle != "" {
		b.WriteString("\nVisual style: ")
		b.WriteString(s.VisualStyle)
		b.WriteString(".")
	}
	if s.DominantTone != "" {
		b.WriteString("\nTone: ")
		b.WriteString(toneDirections[s.DominantTone])
		b.WriteString(".")
	}
	if len(s.CameraDirectives) > 0 {
		if s.CompositionMode == domain.ModeFusionSequential {
			b.WriteString("\nPlay these beats in order:")
			for _, d := range s.CameraDirectives {
				b.WriteString("\n- ")
				b.WriteString(d)
			}
		} else {
			b.WriteString("\nCamera: ")
			b.WriteString(strings.Join(s.CameraDirectives, ", "))
			b.WriteString(".")
		}
	}
	return b.String()
}

// WithContext prepends free-text user context to the script's prompt.
func WithContext(s domain.GenerationScript, context string) domain.GenerationScript {
	context = strings.TrimSpace(context)
	if context == "" {
		return s
	}
	out := s
	out.CameraDirectives = append([]string(nil), s.CameraDirectives...)
	out.FullPrompt = "Context: " + context + "\n\n" + s.FullPrompt
	return out
}

func normalizePacing(p domain.PacingHint) domain.PacingHint {
	if _, ok := pacingDirectives[p]; ok {
		return p
	}
	return domain.PacingModerate
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
