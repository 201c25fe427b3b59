// Package style derives normalized StyleProfiles from analyzed source items.
package style

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediagen/internal/domain"
)

const (
	maxThemeWords      = 5
	defaultVisualStyle = "natural lighting, clean composition"
	placeholderCaption = "untitled clip"
)

var toneLexicon = map[domain.Tone][]string{
	domain.ToneEducational:   {"learn", "learning", "how to", "tutorial", "tutorials", "explained", "tips", "guide", "lesson", "why", "facts", "step", "steps"},
	domain.ToneEntertaining:  {"funny", "lol", "prank", "pranks", "challenge", "comedy", "wait for it", "reaction", "meme", "memes", "hilarious"},
	domain.ToneInspirational: {"motivation", "motivated", "dream", "dreams", "inspire", "inspired", "inspiring", "never give up", "journey", "believe", "success", "grind", "mindset"},
	domain.TonePromotional:   {"buy", "sale", "discount", "link in bio", "shop", "promo", "order now", "limited", "offer", "product", "products"},
	domain.ToneNarrative:     {"story", "stories", "once", "then", "happened", "storytime", "day in the life", "pov", "chapter"},
}

var fastCues = []string{"fast cut", "quick cut", "jump cut", "rapid", "montage", "fast-paced", "high energy", "whip pan"}

var slowCues = []string{"slow motion", "slow-mo", "long take", "static shot", "calm", "ambient", "timelapse", "lingering"}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {}, "on": {},
	"for": {}, "with": {}, "is": {}, "are": {}, "this": {}, "that": {}, "my": {}, "your": {},
	"i": {}, "you": {}, "we": {}, "it": {}, "at": {}, "be": {}, "so": {},
}

// Extract derives the StyleProfile of one source. It is pure: the same item
// always yields the same profile.
func Extract(src domain.SourceItem) (domain.StyleProfile, error) {
	caption := strings.TrimSpace(src.Caption)
	transcript := strings.TrimSpace(src.Transcript)
	if caption == "" && transcript == "" {
		return domain.StyleProfile{}, fmt.Errorf("%w: source %q has neither transcript nor caption", domain.ErrExtraction, src.SourceID)
	}
	return domain.StyleProfile{
		SourceID:         src.SourceID,
		Theme:            deriveTheme(caption, transcript),
		Tone:             deriveTone(caption + "\n" + transcript),
		VisualStyle:      deriveVisualStyle(src.VisualDescriptors),
		PacingHint:       derivePacing(src.VisualDescriptors, transcript),
		EngagementSignal: src.Engagement(),
	}, nil
}

// ExtractAll derives one profile per source, preserving input order.
func ExtractAll(sources []domain.SourceItem) ([]domain.StyleProfile, error) {
	profiles := make([]domain.StyleProfile, 0, len(sources))
	for _, src := range sources {
		p, err := Extract(src)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Placeholder returns a copy of src carrying a synthetic caption so it can be
// extracted when the original has no usable text.
func Placeholder(src domain.SourceItem) domain.SourceItem {
	if strings.TrimSpace(src.Caption) != "" || strings.TrimSpace(src.Transcript) != "" {
		return src
	}
	out := src
	out.VisualDescriptors = append([]string(nil), src.VisualDescriptors...)
	out.Caption = placeholderCaption
	return out
}

func deriveTheme(caption, transcript string) string {
	if tag := firstHashtag(caption); tag != "" {
		return titleCase(splitCamel(tag))
	}
	text := caption
	if text == "" {
		text = transcript
	}
	var words []string
	for _, w := range strings.Fields(text) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if w == "" || strings.HasPrefix(w, "@") {
			continue
		}
		if _, stop := stopWords[strings.ToLower(w)]; stop {
			continue
		}
		words = append(words, w)
		if len(words) == maxThemeWords {
			break
		}
	}
	if len(words) == 0 {
		return titleCase(placeholderCaption)
	}
	return titleCase(strings.Join(words, " "))
}

func firstHashtag(text string) string {
	for _, field := range strings.Fields(text) {
		if !strings.HasPrefix(field, "#") {
			continue
		}
		tag := strings.TrimFunc(strings.TrimPrefix(field, "#"), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if tag != "" {
			return tag
		}
	}
	return ""
}

// splitCamel turns "morningRoutine" into "morning Routine".
func splitCamel(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		if r == '_' || r == '-' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func titleCase(s string) string {
	return cases.Title(language.English).String(cases.Lower(language.English).String(s))
}

// deriveTone scores whole-word lexicon hits, so "lol" does not match inside
// "lollipop". Hashtags count through their camel-case words.
func deriveTone(text string) domain.Tone {
	tokens := tokenize(text)
	best := domain.ToneNarrative
	bestScore := 0
	for _, tone := range domain.Tones {
		score := 0
		for _, kw := range toneLexicon[tone] {
			score += countPhrase(tokens, tokenize(kw))
		}
		if score > bestScore {
			best, bestScore = tone, score
		}
	}
	return best
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(splitCamel(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countPhrase(tokens, phrase []string) int {
	if len(phrase) == 0 {
		return 0
	}
	n := 0
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, w := range phrase {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

func deriveVisualStyle(descriptors []string) string {
	var parts []string
	seen := make(map[string]struct{})
	for _, d := range descriptors {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		key := strings.ToLower(d)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		parts = append(parts, d)
	}
	if len(parts) == 0 {
		return defaultVisualStyle
	}
	return strings.Join(parts, ", ")
}

func derivePacing(descriptors []string, transcript string) domain.PacingHint {
	joined := strings.ToLower(strings.Join(descriptors, " "))
	for _, cue := range fastCues {
		if strings.Contains(joined, cue) {
			return domain.PacingFast
		}
	}
	for _, cue := range slowCues {
		if strings.Contains(joined, cue) {
			return domain.PacingSlow
		}
	}
	if transcript == "" {
		return domain.PacingModerate
	}
	sentences := strings.FieldsFunc(transcript, func(r rune) bool { return r == '.' || r == '!' || r == '?' })
	if len(sentences) == 0 {
		return domain.PacingModerate
	}
	words := len(strings.Fields(transcript))
	avg := float64(words) / float64(len(sentences))
	exclaims := strings.Count(transcript, "!")
	switch {
	case avg < 8 || exclaims*3 >= len(sentences):
		return domain.PacingFast
	case avg > 20:
		return domain.PacingSlow
	default:
		return domain.PacingModerate
	}
}
