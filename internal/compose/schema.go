package compose

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"

	"mediagen/internal/domain"
)

var (
	schemaOnce sync.Once
	schemaJSON json.RawMessage
)

// Schema returns the JSON schema every GenerationScript conforms to.
func Schema() json.RawMessage {
	schemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		raw, err := json.Marshal(reflector.Reflect(&domain.GenerationScript{}))
		if err != nil {
			raw = json.RawMessage(`{}`)
		}
		schemaJSON = raw
	})
	return schemaJSON
}
