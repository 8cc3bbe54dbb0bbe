package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/projitive/internal/ledger"
)

// RoadmapReader extracts roadmap ids from a governance directory.
type RoadmapReader interface {
	// RoadmapIDs returns nil with no error when the roadmap file is missing.
	RoadmapIDs(govDir string) ([]string, error)
}

type fileRoadmapReader struct {
	fileName string
}

// NewRoadmapReader creates a RoadmapReader for <govDir>/<fileName>.
func NewRoadmapReader(fileName string) RoadmapReader {
	return &fileRoadmapReader{fileName: fileName}
}

func (r *fileRoadmapReader) RoadmapIDs(govDir string) ([]string, error) {
	if r.fileName == "" {
		return nil, nil
	}
	path := filepath.Join(govDir, r.fileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading roadmap %s: %w", path, err)
	}
	ids := ledger.ExtractRoadmapIDs(string(data))
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
