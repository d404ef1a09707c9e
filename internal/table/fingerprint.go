package table

import (
	"os"
	"time"
)

// Fingerprint holds stat-based identity for an input file.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a Fingerprint from an on-disk file.
// Stdin ("-") yields a fingerprint carrying only the path.
func StatFile(path string) (Fingerprint, error) {
	if path == "-" {
		return Fingerprint{Path: path}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
