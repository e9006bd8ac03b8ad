package asset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy-backend/internal/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestCheck(t *testing.T) {
	up := domain.Upload{Filename: "proof.png", Data: pngHeader}
	require.NoError(t, Check(&up, 1<<20))
	assert.Equal(t, "image/png", up.ContentType)

	bad := domain.Upload{Filename: "x.txt", Data: []byte("hello")}
	assert.ErrorIs(t, Check(&bad, 1<<20), ErrUnsupportedType)

	big := domain.Upload{Filename: "big.png", Data: pngHeader}
	assert.ErrorIs(t, Check(&big, 4), ErrTooLarge)
}

func TestFSWriterPutResolve(t *testing.T) {
	dir := t.TempDir()
	w := NewFSWriter(dir, "https://cdn.example.com/")
	ref, err := w.Put(context.Background(), domain.Upload{Filename: "My Proof!.png", ContentType: "image/png", Data: pngHeader})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/uploads/MyProof-"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(ref, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	u, err := w.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com"+ref, u)
}

func TestMuxResolveByPrefix(t *testing.T) {
	local := NewFSWriter(t.TempDir(), "")
	m := &Mux{Primary: local, Local: local, GCS: &GCSStore{Bucket: "proofs", ProxyPath: "/api/images/"}}
	ctx := context.Background()

	u, err := m.Resolve(ctx, "/uploads/a.png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a.png", u)

	u, err = m.Resolve(ctx, "gs://proofs/payments/1-a.png")
	require.NoError(t, err)
	assert.Equal(t, "/api/images/payments/1-a.png", u)

	_, err = m.Resolve(ctx, "gs://other/a.png")
	assert.Error(t, err)

	u, err = m.Resolve(ctx, "https://storage.googleapis.com/proofs/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/proofs/a.png", u)

	m.GCS.Public = true
	u, err = m.Resolve(ctx, "gs://proofs/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/proofs/a.png", u)
}
