// Package thumbs generates small JPEG previews of organized images for
// the HTTP status surface.
package thumbs

import (
	"crypto/md5"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"

	"medio/src/features/config"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Generator renders previews into a flat cache directory keyed by the
// source path, so a re-organized file overwrites its old preview.
type Generator struct {
	cfg *config.Manager
}

// NewGenerator creates a thumbnail generator.
func NewGenerator(cfg *config.Manager) (*Generator, error) {
	dir := cfg.Get().Thumbnails.Path
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory %s: %w", dir, err)
	}
	return &Generator{cfg: cfg}, nil
}

// Generate decodes the image at path and writes a bounded-size JPEG
// preview. Formats Go cannot decode (HEIC, camera raw) are skipped
// silently; the preview is a convenience, not a guarantee.
func (g *Generator) Generate(path string) error {
	cfg := g.cfg.Get().Thumbnails

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		slog.Debug("Skipping thumbnail for undecodable image", "path", path, "error", err)
		return nil
	}

	size := uint(cfg.Size)
	if size == 0 {
		size = 320
	}
	thumb := resize.Thumbnail(size, size, img, resize.Lanczos3)

	out, err := os.Create(g.thumbPath(path))
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer out.Close()

	quality := cfg.Quality
	if quality == 0 {
		quality = 85
	}
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	slog.Debug("Thumbnail generated", "source", path, "thumbnail", g.thumbPath(path))
	return nil
}

// Dir returns the cache directory, for the HTTP static mount.
func (g *Generator) Dir() string {
	return g.cfg.Get().Thumbnails.Path
}

func (g *Generator) thumbPath(source string) string {
	hash := md5.Sum([]byte(source))
	return filepath.Join(g.cfg.Get().Thumbnails.Path, fmt.Sprintf("%x.jpg", hash))
}
