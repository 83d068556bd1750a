package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/directory"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the cross-field rules tags cannot express:
// chunk limits must fit in the packet, catalog ids must be unique, and
// watching needs a catalog path.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if _, err := cfg.Server.Tracker().Normalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if cfg.Directory.Type == directory.BackendBadger &&
		cfg.Directory.Badger.MemTableSize > 0 &&
		cfg.Directory.Badger.MemTableSize < directory.MinMemTableSize {
		return fmt.Errorf("directory.badger.mem_table_size %s is below the minimum %s",
			cfg.Directory.Badger.MemTableSize, directory.MinMemTableSize)
	}

	if cfg.Catalog.Watch && cfg.Catalog.Path == "" {
		return errors.New("catalog.watch requires catalog.path")
	}

	return validateCatalogFiles(cfg.Catalog.Files)
}

func validateCatalogFiles(files []wire.FileRecord) error {
	seen := make(map[uint32]struct{}, len(files))
	for i, f := range files {
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("catalog.files[%d]: duplicate file id %d", i, f.ID)
		}
		seen[f.ID] = struct{}{}

		if f.Name == "" {
			return fmt.Errorf("catalog.files[%d]: name is required", i)
		}
	}
	return nil
}

// formatValidationErrors renders each failure as "Namespace: failed 'tag'
// validation", which keeps the tag name visible to callers and tests.
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed '%s' validation", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s: failed '%s=%s' validation", fe.Namespace(), fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}
