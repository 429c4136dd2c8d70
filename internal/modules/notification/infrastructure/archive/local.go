package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
)

// FileArchiver writes purge chunks under a local directory.
type FileArchiver struct {
	basePath string
	now      func() time.Time
}

func NewFileArchiver(basePath string) (*FileArchiver, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileArchiver{basePath: basePath, now: time.Now}, nil
}

func (a *FileArchiver) Archive(ctx context.Context, batch []domain.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(batch)
	if err != nil {
		return err
	}

	fullPath := filepath.Join(a.basePath, filepath.FromSlash(objectKey("", a.now(), batch)))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}
