package wallpapergen

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GeneratedImage represents a single image from a generation batch.
type GeneratedImage struct {
	// ID is unique within the batch
	ID string

	// URL is a directly renderable reference, normally a data URI
	URL string

	// Data contains the raw image bytes
	Data []byte

	// MIMEType of the generated image
	MIMEType string

	// Index is the position in the batch (0-indexed)
	Index int
}

// NewGeneratedImage builds an image with a batch-local id and an inline data URI.
func NewGeneratedImage(batchTime time.Time, index int, data []byte, mimeType string) GeneratedImage {
	if mimeType == "" {
		mimeType = OutputMIMEType
	}
	return GeneratedImage{
		ID:       ImageID(batchTime, index),
		URL:      DataURI(mimeType, data),
		Data:     data,
		MIMEType: mimeType,
		Index:    index,
	}
}

// ImageID returns the id for the image at index in a batch created at batchTime.
func ImageID(batchTime time.Time, index int) string {
	return fmt.Sprintf("image-%d-%d", batchTime.UnixMilli(), index)
}

// DataURI encodes data as a data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

var (
	errNotDataURI = errors.New("not a base64 data URI")
	errEmptyBatch = errors.New("remote returned no images")
)

// ImagePayload is one raw image returned by the remote service.
type ImagePayload struct {
	Data     []byte
	MIMEType string
}

// NewBatch turns remote payloads into GeneratedImages sharing batchTime.
// An empty batch, or any entry without image bytes, is an error; callers
// report it as a generation failure.
func NewBatch(batchTime time.Time, payloads []ImagePayload) ([]GeneratedImage, error) {
	if len(payloads) == 0 {
		return nil, errEmptyBatch
	}
	images := make([]GeneratedImage, 0, len(payloads))
	for i, p := range payloads {
		if len(p.Data) == 0 {
			return nil, fmt.Errorf("image %d has no data", i)
		}
		images = append(images, NewGeneratedImage(batchTime, i, p.Data, p.MIMEType))
	}
	return images, nil
}

// ParseDataURI splits a base64 data URI into its MIME type and payload.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errNotDataURI
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, errNotDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return mimeType, data, nil
}

// Bytes returns the raw image bytes, decoding the URL when only a data URI is held.
func (img GeneratedImage) Bytes() ([]byte, error) {
	if len(img.Data) > 0 {
		return img.Data, nil
	}
	_, data, err := ParseDataURI(img.URL)
	return data, err
}
