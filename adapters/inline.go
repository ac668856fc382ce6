package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/brettbedarf/flatfs"
)

// InlineSource carries the content in the seed file itself
type InlineSource struct {
	Content string `json:"content"`
	Base64  bool   `json:"base64,omitempty"` // Content is standard base64
}

type InlineProvider struct{}

func RegisterInline(r *Registry) {
	r.Register(InlineAdapterType, &InlineProvider{})
}

func (p *InlineProvider) NewAdapter(raw []byte) (flatfs.ContentAdapter, error) {
	var src InlineSource
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, err
	}
	data := []byte(src.Content)
	if src.Base64 {
		var err error
		if data, err = base64.StdEncoding.DecodeString(src.Content); err != nil {
			return nil, err
		}
	}
	return &InlineAdapter{data}, nil
}

type InlineAdapter struct {
	data []byte
}

func (a *InlineAdapter) Content(ctx context.Context) ([]byte, error) {
	return bytes.Clone(a.data), nil
}
