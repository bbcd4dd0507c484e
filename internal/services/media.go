package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"daycare-backend-go/internal/db"

	"github.com/google/uuid"
)

const BucketChildren = "children"

const maxPhotoBytes = 5 << 20

var photoContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func EnsureStoragePath(base string, bucket string) (string, error) {
	path := filepath.Join(base, bucket)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

// SaveChildPhoto stores an uploaded image under a fresh key and points the
// child at it. The previous photo file, if any, is removed.
func SaveChildPhoto(ctx context.Context, store *db.Store, basePath string, childID int64, contentType string, body io.Reader) (string, error) {
	ext, ok := photoContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrBadRequest("Unsupported image type")
	}
	child, err := getChildRow(ctx, store, childID)
	if err != nil {
		return "", err
	}
	bucketPath, err := EnsureStoragePath(basePath, BucketChildren)
	if err != nil {
		return "", err
	}
	storageKey := uuid.NewString() + ext
	targetPath := filepath.Join(bucketPath, storageKey)

	file, err := os.Create(targetPath)
	if err != nil {
		return "", err
	}
	size, err := io.Copy(file, io.LimitReader(body, maxPhotoBytes+1))
	_ = file.Close()
	if err != nil {
		_ = os.Remove(targetPath)
		return "", err
	}
	if size == 0 {
		_ = os.Remove(targetPath)
		return "", ErrBadRequest("Empty file")
	}
	if size > maxPhotoBytes {
		_ = os.Remove(targetPath)
		return "", ErrBadRequest("Image too large")
	}
	if _, err := store.Exec(ctx, `UPDATE children SET photo = ? WHERE id = ?`, storageKey, childID); err != nil {
		_ = os.Remove(targetPath)
		return "", err
	}
	if child.Photo != nil && *child.Photo != "" && *child.Photo != storageKey {
		_ = RemoveChildPhoto(basePath, *child.Photo)
	}
	return storageKey, nil
}

// ChildPhotoPath resolves the stored photo of a child on disk.
func ChildPhotoPath(ctx context.Context, q db.Querier, basePath string, childID int64) (string, error) {
	child, err := getChildRow(ctx, q, childID)
	if err != nil {
		return "", err
	}
	if child.Photo == nil || *child.Photo == "" {
		return "", ErrNotFound("Photo not found")
	}
	return filepath.Join(basePath, BucketChildren, filepath.Base(*child.Photo)), nil
}

func RemoveChildPhoto(basePath, storageKey string) error {
	err := os.Remove(filepath.Join(basePath, BucketChildren, filepath.Base(storageKey)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
