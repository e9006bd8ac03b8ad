package asset

import (
	"context"
	"errors"
	"strings"

	"groupbuy-backend/internal/domain"
)

type Store interface {
	Put(ctx context.Context, up domain.Upload) (string, error)
	Resolve(ctx context.Context, ref string) (string, error)
}

// Mux writes to Primary and resolves refs by their scheme so objects from
// either backend stay readable after a switch.
type Mux struct {
	Primary Store
	Local   *FSWriter
	GCS     *GCSStore
}

func (m *Mux) Put(ctx context.Context, up domain.Upload) (string, error) {
	return m.Primary.Put(ctx, up)
}

func (m *Mux) Resolve(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "gs://"):
		if m.GCS == nil {
			return "", errors.New("asset: object storage not configured")
		}
		return m.GCS.Resolve(ctx, ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref, nil
	case m.Local != nil:
		return m.Local.Resolve(ctx, ref)
	}
	return "", errors.New("asset: cannot resolve " + ref)
}

// SignedURL is only available for private object storage.
func (m *Mux) SignedURL(ctx context.Context, key string) (string, error) {
	if m.GCS == nil {
		return "", errors.New("asset: object storage not configured")
	}
	return m.GCS.SignedURL(ctx, key)
}
