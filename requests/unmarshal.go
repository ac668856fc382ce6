package requests

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/flatfs"
	"github.com/brettbedarf/flatfs/adapters"
	"github.com/brettbedarf/flatfs/internal/util"
)

var (
	ErrMissingName    = errors.New("seed request has no name")
	ErrMissingSources = errors.New("seed request has no sources")
)

// UnmarshalSeedRequest decodes one JSON seed request, resolving each source's
// provider through r
func UnmarshalSeedRequest(data []byte, r *adapters.Registry) (*flatfs.SeedRequest, error) {
	var dto SeedRequestDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(dto.Name, "/")
	if name == "" {
		return nil, ErrMissingName
	}
	if len(dto.Sources) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingSources, name)
	}

	sources, err := unmarshalSources(dto.Sources, data, r)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, err)
	}

	return &flatfs.SeedRequest{
		UUID:    util.ValueOrDefault(dto.UUID, uuid.New().String()),
		Name:    name,
		Offset:  util.ValueOrDefault(dto.Offset, 0),
		Sources: sources,
	}, nil
}

// UnmarshalSeedRequests decodes a JSON array of seed requests. Invalid
// requests are skipped and reported together in the returned error.
func UnmarshalSeedRequests(data []byte, r *adapters.Registry) ([]*flatfs.SeedRequest, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}

	reqs := make([]*flatfs.SeedRequest, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		req, err := UnmarshalSeedRequest(raw, r)
		if err != nil {
			errs = append(errs, fmt.Errorf("request %d: %w", i, err))
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, errors.Join(errs...)
}

// LoadSeedFile reads a .json, .yaml or .yml seed file
func LoadSeedFile(path string, r *adapters.Registry) ([]*flatfs.SeedRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if data, err = yamlToJSON(data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML seed file: %w", err)
		}
	case ".json":
	default:
		return nil, fmt.Errorf("unsupported seed file extension: %s", filepath.Ext(path))
	}
	return UnmarshalSeedRequests(data, r)
}

// yamlToJSON re-encodes a YAML document as JSON so source configs reach the
// adapters in the one format they decode
func yamlToJSON(data []byte) ([]byte, error) {
	var doc []map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = []map[string]any{}
	}
	return json.Marshal(doc)
}

// Helper function to process sources array
func unmarshalSources(sourceDTOs []SourceConfigDTO, rawData []byte, r *adapters.Registry) ([]flatfs.ContentSource, error) {
	// Extract raw sources array from JSON for adapter registry
	var rawMessage struct {
		Sources []json.RawMessage `json:"sources"`
	}
	if err := json.Unmarshal(rawData, &rawMessage); err != nil {
		return nil, err
	}

	sources := make([]flatfs.ContentSource, 0, len(rawMessage.Sources))
	for i, rawSource := range rawMessage.Sources {
		if sourceDTOs[i].Type == "" {
			return nil, fmt.Errorf("source %d: %w", i, adapters.ErrMissingType)
		}
		provider, err := r.GetProvider(sourceDTOs[i].Type)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}

		// Apply priority default
		priority := util.ValueOrDefault(sourceDTOs[i].Priority, i)

		sources = append(sources, flatfs.ContentSource{
			Provider: provider,
			Config:   rawSource,
			Priority: priority,
		})
	}

	return sources, nil
}
