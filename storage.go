package wallpapergen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ErrStorageNotConfigured is returned when a download is attempted
// without a configured storage backend.
var ErrStorageNotConfigured = errors.New("storage not configured")

// Storage is where downloaded images are written.
// Implementations can wrap a local directory, a cloud bucket, etc.
type Storage interface {
	// SaveFile saves image data and returns where it can be found (a path or URL).
	SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// StorageResult contains information about a saved image.
type StorageResult struct {
	// Location is the path or URL returned by the Storage
	Location string

	// Path is the name the image was saved under
	Path string

	// Size is the number of bytes saved
	Size int
}

// DownloadName returns the file name used when saving an image at t.
func DownloadName(t time.Time, mimeType string) string {
	return "ai-wallpaper-" + strconv.FormatInt(t.UnixMilli(), 10) + "." + extensionFromMIME(mimeType)
}

// SaveImage writes a single image to storage under its download name.
func SaveImage(ctx context.Context, storage Storage, img GeneratedImage, now time.Time) (*StorageResult, error) {
	if storage == nil {
		return nil, ErrStorageNotConfigured
	}

	data, err := img.Bytes()
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", img.ID, err)
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = OutputMIMEType
	}
	path := DownloadName(now, mimeType)

	location, err := storage.SaveFile(ctx, data, path, mimeType)
	if err != nil {
		return nil, err
	}

	return &StorageResult{
		Location: location,
		Path:     path,
		Size:     len(data),
	}, nil
}

// SaveImages saves a whole batch. Names are suffixed with the image index:
// ai-wallpaper-{ms}_{index}.{extension}
// It returns StorageResults for each image saved before any failure.
func SaveImages(ctx context.Context, storage Storage, images []GeneratedImage, now time.Time) ([]StorageResult, error) {
	if storage == nil {
		return nil, ErrStorageNotConfigured
	}

	results := make([]StorageResult, 0, len(images))
	for i, img := range images {
		data, err := img.Bytes()
		if err != nil {
			return results, fmt.Errorf("image %s: %w", img.ID, err)
		}

		mimeType := img.MIMEType
		if mimeType == "" {
			mimeType = OutputMIMEType
		}
		path := "ai-wallpaper-" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + strconv.Itoa(i) + "." + extensionFromMIME(mimeType)

		location, err := storage.SaveFile(ctx, data, path, mimeType)
		if err != nil {
			return results, err
		}

		results = append(results, StorageResult{
			Location: location,
			Path:     path,
			Size:     len(data),
		})
	}

	return results, nil
}

// DirStorage saves files into a local directory.
type DirStorage struct {
	Dir string
}

// NewDirStorage creates a DirStorage rooted at dir.
func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{Dir: dir}
}

// SaveFile writes data to Dir/path and returns the full file path.
func (s *DirStorage) SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	full := filepath.Join(s.Dir, filepath.Base(path))
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", full, err)
	}
	return full, nil
}

// extensionFromMIME returns a file extension for common image MIME types.
func extensionFromMIME(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
