package config

// MountOptions holds high-level settings for mounting.
// No go-fuse types are exposed here.
type MountOptions struct {
	Debug      bool   // fuse wire protocol debug logs
	AllowOther bool   // allow other users to access the mount
	// DirectMount calls mount(2) directly before falling back to fusermount.
	// Needs root.
	DirectMount bool
	FsName     string // mount's FsName
	Name       string // mount's Name
}
