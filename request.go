package flatfs

// SeedRequest asks for an entry to be created at startup with content from
// the first of its sources that resolves
type SeedRequest struct {
	UUID    string // identifies the request in logs
	Name    string // flat entry name, no separators
	Offset  int64  // where the content is written
	Sources []ContentSource
}
