package directory

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// Catalog is the on-disk YAML form of the file catalog:
//
//	files:
//	  - id: 1
//	    name: ubuntu.iso
//	    description: Ubuntu 24.04 installer
type Catalog struct {
	Files []wire.FileRecord `yaml:"files"`
}

// LoadCatalog reads and parses a YAML catalog file.
func LoadCatalog(path string) ([]wire.FileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	return catalog.Files, nil
}

// SeedCatalog registers every file in files. Files already present are logged
// and skipped. It returns how many files were added.
func SeedCatalog(ctx context.Context, dir Directory, files []wire.FileRecord) (int, error) {
	added := 0
	for _, f := range files {
		if len(f.Name) > wire.MaxFileNameLength || len(f.Description) > wire.MaxFileDescLength {
			logger.Warn("Catalog entry exceeds wire width and will be truncated",
				logger.KeyFileID, f.ID,
				"name", f.Name)
		}

		err := dir.RegisterFile(ctx, f)
		switch {
		case err == nil:
			added++
		case errors.Is(err, ErrFileExists):
			logger.Debug("Catalog file already registered", logger.KeyFileID, f.ID)
		default:
			return added, fmt.Errorf("failed to register file %d: %w", f.ID, err)
		}
	}

	if added > 0 {
		logger.Info("Catalog seeded", logger.KeyFiles, added, logger.KeyCount, len(files))
	}
	return added, nil
}
