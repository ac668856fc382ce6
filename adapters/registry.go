package adapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/brettbedarf/flatfs"
	"github.com/brettbedarf/flatfs/internal/util"
)

var (
	ErrMissingType = errors.New("source config has no type")
	ErrNoProvider  = errors.New("no provider registered")
)

// Registry ties adapter providers to the "type" key of a source config
type Registry struct {
	mu        sync.RWMutex
	providers map[string]flatfs.AdapterProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]flatfs.AdapterProvider{}}
}

var defaultRegistry = NewRegistry()

// Default returns the process wide registry used by the CLI
func Default() *Registry {
	return defaultRegistry
}

// Register adds provider under adapterType. The first registration for a
// type wins; later ones are ignored with a warning.
func (r *Registry) Register(adapterType string, provider flatfs.AdapterProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[adapterType]; ok {
		logger := util.GetLogger("Adapters.Registry")
		logger.Warn().Str("type", adapterType).Msg("Provider already registered, ignoring")
		return
	}
	r.providers[adapterType] = provider
}

func (r *Registry) GetProvider(adapterType string) (flatfs.AdapterProvider, error) {
	r.mu.RLock()
	p, ok := r.providers[adapterType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoProvider, adapterType)
	}
	return p, nil
}

// SourceType reads the "type" field of a raw source config
func SourceType(raw []byte) (string, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", err
	}
	if meta.Type == "" {
		return "", ErrMissingType
	}
	return meta.Type, nil
}

// NewAdapter picks the provider based on the "type" field and builds an
// adapter from the full raw config
func (r *Registry) NewAdapter(raw []byte) (flatfs.ContentAdapter, error) {
	adapterType, err := SourceType(raw)
	if err != nil {
		return nil, err
	}
	p, err := r.GetProvider(adapterType)
	if err != nil {
		return nil, err
	}
	return p.NewAdapter(raw)
}
