package race

import "github.com/kolkov/detrace/internal/race/buildinfo"

// Version is the current version of the detector runtime.
const Version = buildinfo.Version

// Info provides runtime information about the detector.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Algorithm is the race detection algorithm used.
	Algorithm string
}

// GetInfo returns information about the detector runtime.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Algorithm: "shadow-stack disjointness",
	}
}
