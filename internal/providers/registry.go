// Package providers holds the immutable provider configuration shared by all
// trackers: one ProviderDescriptor per concrete provider, ordered into a
// fallback chain per media type.
package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mediagen/internal/domain"
)

// Registry is read-only after construction.
type Registry struct {
	chains map[domain.MediaType][]domain.ProviderDescriptor
	byID   map[string]domain.ProviderDescriptor
	order  []string
}

// NewRegistry validates descriptors and groups them into chains preserving
// their relative order.
func NewRegistry(descriptors []domain.ProviderDescriptor) (*Registry, error) {
	r := &Registry{
		chains: make(map[domain.MediaType][]domain.ProviderDescriptor),
		byID:   make(map[string]domain.ProviderDescriptor),
	}
	for _, d := range descriptors {
		if strings.TrimSpace(d.ProviderID) == "" {
			return nil, fmt.Errorf("providers: provider_id is required")
		}
		if _, dup := r.byID[d.ProviderID]; dup {
			return nil, fmt.Errorf("providers: duplicate provider_id %q", d.ProviderID)
		}
		if d.MediaType != domain.MediaTypeVideo && d.MediaType != domain.MediaTypeImage {
			return nil, fmt.Errorf("providers: %s has unsupported media type %q", d.ProviderID, d.MediaType)
		}
		if d.PollInterval <= 0 {
			return nil, fmt.Errorf("providers: %s poll interval must be positive", d.ProviderID)
		}
		if d.MaxWait <= 0 {
			return nil, fmt.Errorf("providers: %s max wait must be positive", d.ProviderID)
		}
		d.AllowedDurations = normalizeDurations(d.AllowedDurations)
		r.byID[d.ProviderID] = d
		r.order = append(r.order, d.ProviderID)
		r.chains[d.MediaType] = append(r.chains[d.MediaType], d)
	}
	return r, nil
}

// Chain returns a copy of the fallback chain for a media type.
func (r *Registry) Chain(mediaType domain.MediaType) []domain.ProviderDescriptor {
	chain := r.chains[mediaType]
	out := make([]domain.ProviderDescriptor, len(chain))
	for i, d := range chain {
		d.AllowedDurations = append([]int(nil), d.AllowedDurations...)
		out[i] = d
	}
	return out
}

// Descriptors returns every descriptor in configuration order.
func (r *Registry) Descriptors() []domain.ProviderDescriptor {
	out := make([]domain.ProviderDescriptor, 0, len(r.order))
	for _, id := range r.order {
		d, _ := r.Descriptor(id)
		out = append(out, d)
	}
	return out
}

// Descriptor looks up a provider by id.
func (r *Registry) Descriptor(providerID string) (domain.ProviderDescriptor, bool) {
	d, ok := r.byID[providerID]
	if ok {
		d.AllowedDurations = append([]int(nil), d.AllowedDurations...)
	}
	return d, ok
}

// NearestAllowed coerces requested onto the allowed set: the largest allowed
// value not above requested, else the smallest allowed value. An empty set
// means the provider has no duration constraint.
func NearestAllowed(requested int, allowed []int) int {
	if len(allowed) == 0 {
		return requested
	}
	sorted := normalizeDurations(allowed)
	best := -1
	for _, v := range sorted {
		if v <= requested {
			best = v
		}
	}
	if best >= 0 {
		return best
	}
	return sorted[0]
}

func normalizeDurations(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if v <= 0 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

type fileDescriptor struct {
	ID                  string `yaml:"id"`
	Kind                string `yaml:"kind"`
	Model               string `yaml:"model"`
	AllowedDurations    []int  `yaml:"allowed_durations"`
	MaxPromptLength     int    `yaml:"max_prompt_length"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxWaitSeconds      int    `yaml:"max_wait_seconds"`
}

type fileConfig struct {
	Video []fileDescriptor `yaml:"video"`
	Image []fileDescriptor `yaml:"image"`
}

// ParseYAML decodes chains from a YAML document of the form:
//
//	video:
//	  - id: veo
//	    kind: veo
//	    allowed_durations: [4, 6, 8]
//	image:
//	  - id: wanx
//	    kind: dashscope
func ParseYAML(data []byte) ([]domain.ProviderDescriptor, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("providers: decode yaml: %w", err)
	}
	var out []domain.ProviderDescriptor
	for _, group := range []struct {
		media domain.MediaType
		items []fileDescriptor
	}{{domain.MediaTypeVideo, cfg.Video}, {domain.MediaTypeImage, cfg.Image}} {
		for _, fd := range group.items {
			out = append(out, fd.descriptor(group.media))
		}
	}
	return out, nil
}

// LoadFile reads a YAML chain definition from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("providers: read %s: %w", path, err)
	}
	descriptors, err := ParseYAML(data)
	if err != nil {
		return nil, err
	}
	return NewRegistry(descriptors)
}

func (fd fileDescriptor) descriptor(media domain.MediaType) domain.ProviderDescriptor {
	kind := strings.TrimSpace(fd.Kind)
	if kind == "" {
		kind = fd.ID
	}
	maxPrompt := fd.MaxPromptLength
	if maxPrompt <= 0 {
		maxPrompt = DefaultMaxPromptLength
	}
	poll := fd.PollIntervalSeconds
	if poll <= 0 {
		poll = 5
	}
	wait := fd.MaxWaitSeconds
	if wait <= 0 {
		wait = 600
	}
	return domain.ProviderDescriptor{
		ProviderID:       fd.ID,
		Kind:             kind,
		Model:            fd.Model,
		MediaType:        media,
		AllowedDurations: fd.AllowedDurations,
		MaxPromptLength:  maxPrompt,
		PollInterval:     time.Duration(poll) * time.Second,
		MaxWait:          time.Duration(wait) * time.Second,
	}
}
