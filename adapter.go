package flatfs

import "context"

// ContentAdapter resolves the bytes a seeded entry is populated with.
// Instances are 1:1 with a single source config.
type ContentAdapter interface {
	// Content returns the full content of the source
	Content(ctx context.Context) ([]byte, error)
}

// AdapterProvider is a factory for concrete [ContentAdapter] implementations
// generated from a source's raw JSON config.
// Implementations should handle resource management (http clients etc) for its adapters
type AdapterProvider interface {
	NewAdapter(config []byte) (ContentAdapter, error)
}

// ContentSource pairs a provider with the raw config it builds an adapter from
type ContentSource struct {
	Provider AdapterProvider
	Config   []byte
	Priority int `json:"priority,omitempty"` // Lower number = higher priority
}

// Adapter builds the source's adapter from its config
func (s ContentSource) Adapter() (ContentAdapter, error) {
	return s.Provider.NewAdapter(s.Config)
}
