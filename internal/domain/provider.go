package domain

import "time"

// ProviderDescriptor is the static configuration of one concrete provider.
type ProviderDescriptor struct {
	ProviderID       string
	Kind             string
	Model            string
	MediaType        MediaType
	AllowedDurations []int
	MaxPromptLength  int
	PollInterval     time.Duration
	MaxWait          time.Duration
}

// Artifact is the binary result of a completed generation.
type Artifact struct {
	JobID      string
	ProviderID string
	URL        string
	MIME       string
	StorageKey string
	Data       []byte
}
