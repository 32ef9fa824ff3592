package handlers

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mindvibe/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxUploadSize = 5 << 20

var allowedUploadExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

// MediaStore saves uploaded proof images below a root directory and returns
// paths relative to it.
type MediaStore struct {
	root string
}

func NewMediaStore(root string) *MediaStore {
	return &MediaStore{root: root}
}

// Save stores the multipart file in field under dir. A missing file is a
// validation error.
func (m *MediaStore) Save(c *fiber.Ctx, field, dir string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%w: %s is required", services.ErrValidation, field)
	}
	if fh.Size > maxUploadSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", services.ErrValidation, field, maxUploadSize)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedUploadExt[ext] {
		return "", fmt.Errorf("%w: %s must be an image or PDF", services.ErrValidation, field)
	}

	if err := os.MkdirAll(filepath.Join(m.root, dir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	rel := path.Join(dir, uuid.New().String()+ext)
	if err := c.SaveFile(fh, filepath.Join(m.root, filepath.FromSlash(rel))); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", field, err)
	}
	return rel, nil
}

// Remove deletes a file previously returned by Save. A missing file is not
// an error.
func (m *MediaStore) Remove(rel string) error {
	err := os.Remove(filepath.Join(m.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	return nil
}
