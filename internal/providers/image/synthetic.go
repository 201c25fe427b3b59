package image

import (
	"time"

	"github.com/jonboulle/clockwork"

	"mediagen/internal/providers/genai"
)

// NewSynthetic returns a simulated image provider rendering seeded PNGs.
func NewSynthetic(clock clockwork.Clock) *genai.Simulator {
	return genai.NewSimulator(genai.SimulatorOptions{
		Name:       "synthetic-image",
		MIME:       "image/png",
		RenderTime: 2 * time.Second,
		Clock:      clock,
		Render: func(seed, _ string, _ int) []byte {
			return genai.RenderImage(1024, 1024, seed)
		},
	})
}
