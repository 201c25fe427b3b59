package video

import (
	"time"

	"github.com/jonboulle/clockwork"

	"mediagen/internal/providers/genai"
)

// NewSynthetic returns a simulated video provider that renders placeholder
// clips after a short queue and render delay.
func NewSynthetic(clock clockwork.Clock) *genai.Simulator {
	return genai.NewSimulator(genai.SimulatorOptions{
		Name:       "synthetic-video",
		MIME:       "video/mp4",
		QueueTime:  2 * time.Second,
		RenderTime: 8 * time.Second,
		Clock:      clock,
		Render:     genai.RenderVideo,
	})
}
