package asset

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"groupbuy-backend/internal/domain"
)

const signedURLExpiry = 15 * time.Minute

// GCSStore keeps attachments in a Cloud Storage bucket. Refs have the form
// gs://<bucket>/<key>.
type GCSStore struct {
	client *storage.Client
	Bucket string
	Prefix string
	// Public stores world readable URLs instead of proxied refs.
	Public bool
	// ProxyPath is where private objects are served from, e.g. /api/images/.
	ProxyPath string
}

func NewGCSStore(ctx context.Context, bucket, prefix string, public bool) (*GCSStore, error) {
	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client error: %w", err)
	}
	return &GCSStore{client: c, Bucket: bucket, Prefix: strings.Trim(prefix, "/"), Public: public, ProxyPath: "/api/images/"}, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}

func (g *GCSStore) Put(ctx context.Context, up domain.Upload) (string, error) {
	key := path.Join(g.Prefix, fmt.Sprintf("%d-%s", time.Now().Unix(), objectName(up)))
	w := g.client.Bucket(g.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = up.ContentType
	if _, err := w.Write(up.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", key, err)
	}
	return "gs://" + g.Bucket + "/" + key, nil
}

// Key extracts the object key from a ref in this store's bucket.
func (g *GCSStore) Key(ref string) (string, bool) {
	p := "gs://" + g.Bucket + "/"
	if !strings.HasPrefix(ref, p) {
		return "", false
	}
	return strings.TrimPrefix(ref, p), true
}

func (g *GCSStore) Resolve(_ context.Context, ref string) (string, error) {
	key, ok := g.Key(ref)
	if !ok {
		return "", fmt.Errorf("asset: ref %q is not in bucket %s", ref, g.Bucket)
	}
	if g.Public {
		return "https://storage.googleapis.com/" + g.Bucket + "/" + key, nil
	}
	return g.ProxyPath + key, nil
}

// SignedURL grants short lived read access to key.
func (g *GCSStore) SignedURL(_ context.Context, key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("asset: invalid key %q", key)
	}
	return g.client.Bucket(g.Bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(signedURLExpiry),
	})
}
