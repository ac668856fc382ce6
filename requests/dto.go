package requests

// SeedRequestDTO is the JSON representation of [flatfs.SeedRequest]
type SeedRequestDTO struct {
	UUID    *string           `json:"uuid,omitempty"`   // Optional; generated when missing
	Name    string            `json:"name"`             // Flat entry name, a leading "/" is accepted
	Offset  *int64            `json:"offset,omitempty"` // Write offset for the content (Default 0)
	Sources []SourceConfigDTO `json:"sources"`
}

// SourceConfigDTO is the JSON representation of static [flatfs.ContentSource] fields
//
// Additional fields depend on the "type" value:
//
// Ex. For type="http" (see [adapters.HTTPSource]):
//
//	URL     string            `json:"url"`
//	Method  *string           `json:"method,omitempty"`
//	Headers map[string]string `json:"headers,omitempty"`
//
// See adapters package for built-ins complete field specifications.
type SourceConfigDTO struct {
	Type     string `json:"type"`
	Priority *int   `json:"priority,omitempty"` // Lower number = higher priority, defaults to array index
}
