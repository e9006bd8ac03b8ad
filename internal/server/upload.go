package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/infrastructure/asset"
)

// formUpload reads an optional image field from a multipart form. A missing
// field, or a body that is not multipart at all, yields nil.
func (s *Server) formUpload(c *gin.Context, field string) (*domain.Upload, error) {
	f, hdr, err := c.Request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.UploadMaxBytes+1))
	if err != nil {
		return nil, err
	}
	up := &domain.Upload{Filename: filepath.Base(hdr.Filename), Data: data}
	if err := asset.Check(up, s.cfg.UploadMaxBytes); err != nil {
		return nil, err
	}
	return up, nil
}
