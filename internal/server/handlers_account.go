package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"groupbuy-backend/internal/usecase"
)

func (s *Server) handleListServices(c *gin.Context) {
	svcs, err := s.d.Bookings.ListServices(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": svcs})
}

func (s *Server) handleGetService(c *gin.Context) {
	sv, err := s.d.Bookings.GetService(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sv)
}

func (s *Server) handleCreateBooking(c *gin.Context) {
	image, err := s.formUpload(c, "referenceImage")
	if err != nil {
		s.fail(c, err)
		return
	}
	b, err := s.d.Bookings.Book(c.Request.Context(), usecase.BookingInput{
		ServiceID:     c.PostForm("serviceId"),
		CustomerName:  c.PostForm("customerName"),
		Phone:         c.PostForm("phone"),
		PreferredTime: c.PostForm("preferredTime"),
		Note:          c.PostForm("optionalNote"),
		Image:         image,
	}, sessionProof(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Debug("booking created", zap.String("requestId", c.GetString(requestIDKey)), zap.String("bookingId", b.ID))
	c.JSON(http.StatusCreated, gin.H{"bookingId": b.ID, "booking": b})
}

func (s *Server) handleGetBooking(c *gin.Context) {
	v, err := s.d.Bookings.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleAccount(c *gin.Context) {
	a, err := s.d.Accounts.Overview(c.Request.Context(), identityOf(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleMyServiceRequests(c *gin.Context) {
	reqs, err := s.d.Accounts.ServiceRequests(c.Request.Context(), identityOf(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"serviceRequests": reqs})
}
