package providers

import (
	"time"

	"mediagen/internal/domain"
)

// Provider kinds understood by the gateway factory.
const (
	KindVeo            = "veo"
	KindGeminiImage    = "gemini-image"
	KindDashScope      = "dashscope"
	KindSyntheticVideo = "synthetic-video"
	KindSyntheticImage = "synthetic-image"
)

// DefaultMaxPromptLength applies when a descriptor omits its limit.
const DefaultMaxPromptLength = 2000

// DefaultDescriptors is the built-in chain used when no providers file is
// configured. Synthetic providers close each chain only when requested.
func DefaultDescriptors(includeSynthetic bool) []domain.ProviderDescriptor {
	out := []domain.ProviderDescriptor{
		{
			ProviderID:       "veo-3",
			Kind:             KindVeo,
			Model:            "veo-3.0-generate-001",
			MediaType:        domain.MediaTypeVideo,
			AllowedDurations: []int{4, 6, 8},
			MaxPromptLength:  4000,
			PollInterval:     10 * time.Second,
			MaxWait:          6 * time.Minute,
		},
		{
			ProviderID:       "veo-3-fast",
			Kind:             KindVeo,
			Model:            "veo-3.0-fast-generate-001",
			MediaType:        domain.MediaTypeVideo,
			AllowedDurations: []int{4, 6, 8},
			MaxPromptLength:  4000,
			PollInterval:     10 * time.Second,
			MaxWait:          6 * time.Minute,
		},
		{
			ProviderID:      "gemini-image",
			Kind:            KindGeminiImage,
			Model:           "gemini-2.5-flash-image",
			MediaType:       domain.MediaTypeImage,
			MaxPromptLength: 4000,
			PollInterval:    2 * time.Second,
			MaxWait:         2 * time.Minute,
		},
		{
			ProviderID:      "wanx",
			Kind:            KindDashScope,
			Model:           "wan2.2-t2i-flash",
			MediaType:       domain.MediaTypeImage,
			MaxPromptLength: 800,
			PollInterval:    3 * time.Second,
			MaxWait:         3 * time.Minute,
		},
	}
	if includeSynthetic {
		out = append(out,
			domain.ProviderDescriptor{
				ProviderID:       "synthetic-video",
				Kind:             KindSyntheticVideo,
				Model:            "synthetic",
				MediaType:        domain.MediaTypeVideo,
				AllowedDurations: []int{4, 8, 12, 16},
				MaxPromptLength:  8000,
				PollInterval:     2 * time.Second,
				MaxWait:          time.Minute,
			},
			domain.ProviderDescriptor{
				ProviderID:      "synthetic-image",
				Kind:            KindSyntheticImage,
				Model:           "synthetic",
				MediaType:       domain.MediaTypeImage,
				MaxPromptLength: 8000,
				PollInterval:    time.Second,
				MaxWait:         time.Minute,
			},
		)
	}
	return out
}
