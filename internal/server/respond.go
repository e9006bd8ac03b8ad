package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"groupbuy-backend/internal/infrastructure/asset"
	"groupbuy-backend/internal/usecase"
)

func (s *Server) err(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   msg,
			"requestId": c.GetString(requestIDKey),
		},
	})
}

// fail maps usecase errors onto the error envelope. Unknown errors are
// logged and reported as a generic server error.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		notFound     usecase.ErrNotFound
		conflict     usecase.ErrConflict
		badRequest   usecase.ErrBadRequest
		forbidden    usecase.ErrForbidden
		unauthorized usecase.ErrUnauthorized
		upstream     usecase.ErrUpstream
	)
	switch {
	case errors.As(err, &notFound):
		s.err(c, http.StatusNotFound, "NotFound", err.Error())
	case errors.As(err, &conflict):
		s.err(c, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &badRequest):
		s.err(c, http.StatusBadRequest, "BadRequest", err.Error())
	case errors.As(err, &forbidden):
		s.err(c, http.StatusForbidden, "Forbidden", err.Error())
	case errors.As(err, &unauthorized):
		s.err(c, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.As(err, &upstream):
		s.log.Warn("upstream failure", zap.String("requestId", c.GetString(requestIDKey)), zap.Error(err))
		s.err(c, http.StatusBadGateway, "UpstreamError", err.Error())
	case errors.Is(err, asset.ErrTooLarge):
		s.err(c, http.StatusRequestEntityTooLarge, "TooLarge", err.Error())
	case errors.Is(err, asset.ErrUnsupportedType):
		s.err(c, http.StatusBadRequest, "BadRequest", err.Error())
	default:
		s.log.Error("request failed", zap.String("requestId", c.GetString(requestIDKey)), zap.String("path", c.FullPath()), zap.Error(err))
		s.err(c, http.StatusInternalServerError, "ServerError", "internal error")
	}
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	s.err(c, http.StatusBadRequest, "BadRequest", msg)
}
