// Package blob stores uploaded images on local disk and hands out public URLs.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// MaxUploadSize ограничивает размер исходного файла
const MaxUploadSize = 10 << 20

var ErrNotImage = errors.New("файл не является изображением")

type Store struct {
	dir       string
	publicURL string
	edge      int
	quality   int
	now       func() time.Time
}

// New creates the directory if needed. edge is the side of the square output
// in pixels, quality the JPEG quality (1..100).
func New(dir, publicURL string, edge, quality int) (*Store, error) {
	const op = "blob.New"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if edge <= 0 {
		edge = 600
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Store{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		edge:      edge,
		quality:   quality,
		now:       time.Now,
	}, nil
}

// Dir is the directory served under the public URL.
func (s *Store) Dir() string {
	return s.dir
}

// SaveImage crops the image to a centred square, scales it to edge pixels,
// re-encodes it as JPEG and returns its public URL.
func (s *Store) SaveImage(ctx context.Context, folder string, r io.Reader) (string, error) {
	const op = "blob.SaveImage"

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	src, _, err := image.Decode(io.LimitReader(r, MaxUploadSize))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrNotImage, err)
	}

	side := min(src.Bounds().Dx(), src.Bounds().Dy())
	edge := min(side, s.edge)
	img := imaging.Fill(src, edge, edge, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.quality)); err != nil {
		return "", fmt.Errorf("%s: encode: %w", op, err)
	}

	name := s.generateName(folder)
	full := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := os.WriteFile(full, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("%s: write %s: %w", op, name, err)
	}

	return s.publicURL + "/" + name, nil
}

// Delete removes a blob by its public URL. Unknown URLs are ignored.
func (s *Store) Delete(url string) error {
	const op = "blob.Delete"

	name, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || name == "" || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) generateName(folder string) string {
	folder = sanitizeFolder(folder)
	file := fmt.Sprintf("%s-%s.jpg", s.now().Format("20060102"), uuid.New().String())
	if folder == "" {
		return file
	}
	return path.Join(folder, file)
}

func sanitizeFolder(folder string) string {
	var b strings.Builder
	for _, r := range folder {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
