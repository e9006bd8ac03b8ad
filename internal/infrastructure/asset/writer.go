package asset

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"groupbuy-backend/internal/domain"
)

var (
	ErrUnsupportedType = errors.New("only jpeg, png, gif or webp images are accepted")
	ErrTooLarge        = errors.New("file too large")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Check sniffs the upload and fills in its content type.
func Check(up *domain.Upload, maxBytes int64) error {
	if maxBytes > 0 && int64(len(up.Data)) > maxBytes {
		return ErrTooLarge
	}
	ct := http.DetectContentType(up.Data)
	if _, ok := allowedTypes[ct]; !ok {
		return ErrUnsupportedType
	}
	up.ContentType = ct
	return nil
}

// objectName keeps a readable stem of the client filename and makes it
// unique.
func objectName(up domain.Upload) string {
	ext := allowedTypes[up.ContentType]
	stem := strings.TrimSuffix(filepath.Base(up.Filename), filepath.Ext(up.Filename))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, stem)
	if len(stem) > 40 {
		stem = stem[:40]
	}
	if stem == "" {
		stem = "upload"
	}
	return stem + "-" + uuid.NewString() + ext
}

type FSWriter struct {
	UploadsDir    string
	PublicBaseURL string
}

func NewFSWriter(uploadsDir string, publicBaseURL string) *FSWriter {
	return &FSWriter{UploadsDir: uploadsDir, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Put writes the file under UploadsDir and returns its /uploads/ path.
func (w *FSWriter) Put(_ context.Context, up domain.Upload) (string, error) {
	if err := os.MkdirAll(w.UploadsDir, 0o755); err != nil {
		return "", err
	}
	name := objectName(up)
	if err := os.WriteFile(filepath.Join(w.UploadsDir, name), up.Data, 0o644); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}

func (w *FSWriter) Resolve(_ context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, "/uploads/") {
		return "", errors.New("asset: not a local ref: " + ref)
	}
	return w.buildURL(ref), nil
}

func (w *FSWriter) buildURL(path string) string {
	if w.PublicBaseURL == "" {
		return path
	}
	return w.PublicBaseURL + path
}
