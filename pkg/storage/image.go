package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	// ErrEmptyImage is returned when no bytes were supplied.
	ErrEmptyImage = errors.New("image payload is empty")
	// ErrImageTooLarge is returned when the decoded payload exceeds the configured limit.
	ErrImageTooLarge = errors.New("image payload too large")
)

type blobWriter interface {
	Save(name string, data []byte) (string, error)
}

// ImageStoreConfig tunes re-encoding and addressing of stored images.
type ImageStoreConfig struct {
	PublicBaseURL string
	MaxBytes      int64
	MaxWidth      int
	Quality       float32
}

// ImageStore normalises uploaded images to webp and persists them.
type ImageStore struct {
	blobs blobWriter
	cfg   ImageStoreConfig
	now   func() time.Time
}

// NewImageStore constructs an ImageStore on top of a blob writer.
func NewImageStore(blobs blobWriter, cfg ImageStoreConfig) *ImageStore {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 5 * 1024 * 1024
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 1024
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 85
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &ImageStore{blobs: blobs, cfg: cfg, now: time.Now}
}

// Store accepts raw image bytes or a base64 data URI, re-encodes it and returns its public URL.
func (s *ImageStore) Store(ctx context.Context, folder string, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := DecodeDataURI(payload)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", ErrEmptyImage
	}
	if int64(len(raw)) > s.cfg.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(raw))
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		img, err = webp.Decode(bytes.NewReader(raw))
		if err != nil {
			return "", fmt.Errorf("decode image: %w", err)
		}
	}
	if img.Bounds().Dx() > s.cfg.MaxWidth {
		img = imaging.Resize(img, s.cfg.MaxWidth, 0, imaging.Lanczos)
	}

	buf := &bytes.Buffer{}
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: s.cfg.Quality}); err != nil {
		return "", fmt.Errorf("encode webp: %w", err)
	}

	name := fmt.Sprintf("%s/%s-%s.webp", strings.Trim(folder, "/"), s.now().UTC().Format("20060102"), uuid.NewString())
	stored, err := s.blobs.Save(name, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return s.cfg.PublicBaseURL + "/" + stored, nil
}

// DecodeDataURI returns the decoded body of a base64 data URI, or payload unchanged when it is not one.
func DecodeDataURI(payload []byte) ([]byte, error) {
	text := string(bytes.TrimSpace(payload))
	if !strings.HasPrefix(text, "data:") {
		return payload, nil
	}
	comma := strings.IndexByte(text, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data uri")
	}
	meta := text[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("data uri must be base64 encoded")
	}
	decoded, err := base64.StdEncoding.DecodeString(text[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return decoded, nil
}
