// Package blobstore persists image payloads as files on disk: one
// full-resolution encoding plus a fixed-size thumbnail per item,
// keyed by the owning item's id. Binary data never enters the
// structured history store.
package blobstore

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif" // register decoders for pasteboard formats

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

const (
	thumbnailMaxWidth  = 200
	thumbnailMaxHeight = 200
	thumbnailQuality   = 80

	imageExt     = ".png"
	thumbnailExt = ".jpg"
)

var (
	ErrNotFound  = errors.New("blob not found")
	ErrInvalidID = errors.New("invalid blob id")
)

// Store owns the images/ and thumbnails/ directories. No other
// component creates or deletes files under them.
type Store struct {
	imagesDir     string
	thumbnailsDir string
	logger        *zap.Logger
}

// Config holds configuration for Store initialization.
type Config struct {
	ImagesDir     string
	ThumbnailsDir string
	Logger        *zap.Logger
}

// SaveResult describes a persisted image.
type SaveResult struct {
	ID            string
	ImagePath     string
	ThumbnailPath string
	SizeBytes     int64
}

// Stats summarizes on-disk blob usage for diagnostics.
type Stats struct {
	ImageCount     int
	ThumbnailCount int
	TotalBytes     int64
}

// New creates a Store. Init must be called before use.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		imagesDir:     cfg.ImagesDir,
		thumbnailsDir: cfg.ThumbnailsDir,
		logger:        logger,
	}
}

// Init ensures both storage directories exist. Failure here is fatal
// to image support and is propagated to the caller.
func (s *Store) Init() error {
	for _, dir := range []string{s.imagesDir, s.thumbnailsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create blob directory %s: %w", dir, err)
		}
	}
	s.logger.Debug("blob store initialized",
		zap.String("images_dir", s.imagesDir),
		zap.String("thumbnails_dir", s.thumbnailsDir))
	return nil
}

// ValidateID rejects ids that could escape the storage directories.
// Ids may originate from import data and are not trusted.
func ValidateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidID
	}
	return nil
}

// Save writes a full-resolution PNG re-encoding of data and a
// fit-inside thumbnail. An empty id generates one. Thumbnail failure
// degrades to an empty ThumbnailPath; full-image failure fails the
// call and the caller must not record any paths.
func (s *Store) Save(data []byte, id string) (*SaveResult, error) {
	if id == "" {
		id = uuid.New().String()
	} else if err := ValidateID(id); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	imagePath := filepath.Join(s.imagesDir, id+imageExt)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := os.WriteFile(imagePath, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write image file: %w", err)
	}

	result := &SaveResult{
		ID:        id,
		ImagePath: imagePath,
		SizeBytes: int64(buf.Len()),
	}

	thumbnailPath, err := s.writeThumbnail(img, id)
	if err != nil {
		// Degrade to no thumbnail: the caller falls back to the
		// full image or a placeholder.
		s.logger.Warn("thumbnail generation failed",
			zap.String("id", id),
			zap.Error(err))
	} else {
		result.ThumbnailPath = thumbnailPath
	}

	s.logger.Debug("image saved",
		zap.String("id", id),
		zap.String("source_format", format),
		zap.Int64("size_bytes", result.SizeBytes),
		zap.Bool("has_thumbnail", result.ThumbnailPath != ""))

	return result, nil
}

func (s *Store) writeThumbnail(img image.Image, id string) (string, error) {
	thumb := resize.Thumbnail(thumbnailMaxWidth, thumbnailMaxHeight, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	thumbnailPath := filepath.Join(s.thumbnailsDir, id+thumbnailExt)
	if err := os.WriteFile(thumbnailPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail file: %w", err)
	}
	return thumbnailPath, nil
}

// Delete removes both files for id, best-effort. A missing file is
// not an error; false is returned only for invalid ids or removal
// failures other than absence.
func (s *Store) Delete(id string) bool {
	if err := ValidateID(id); err != nil {
		s.logger.Warn("refusing blob delete", zap.String("id", id), zap.Error(err))
		return false
	}

	ok := true
	for _, path := range []string{
		filepath.Join(s.imagesDir, id+imageExt),
		filepath.Join(s.thumbnailsDir, id+thumbnailExt),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove blob file",
				zap.String("path", path),
				zap.Error(err))
			ok = false
		}
	}
	return ok
}

// Read returns the full-resolution image bytes for id.
func (s *Store) Read(id string) ([]byte, error) {
	return s.readFile(filepath.Join(s.imagesDir, id+imageExt), id)
}

// ReadThumbnail returns the thumbnail bytes for id.
func (s *Store) ReadThumbnail(id string) ([]byte, error) {
	return s.readFile(filepath.Join(s.thumbnailsDir, id+thumbnailExt), id)
}

func (s *Store) readFile(path, id string) ([]byte, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob file: %w", err)
	}
	return data, nil
}

// Stats reports file counts and total bytes across both directories.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	count := func(dir string) (int, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return 0, nil
			}
			return 0, fmt.Errorf("failed to read blob directory %s: %w", dir, err)
		}
		n := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			n++
			if info, err := entry.Info(); err == nil {
				stats.TotalBytes += info.Size()
			}
		}
		return n, nil
	}

	var err error
	if stats.ImageCount, err = count(s.imagesDir); err != nil {
		return nil, err
	}
	if stats.ThumbnailCount, err = count(s.thumbnailsDir); err != nil {
		return nil, err
	}
	return stats, nil
}
