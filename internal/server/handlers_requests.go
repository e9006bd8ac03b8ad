package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/usecase"
)

func sessionProof(c *gin.Context) *usecase.SessionProof {
	id := identityOf(c)
	if id == nil {
		return nil
	}
	return &usecase.SessionProof{UserID: id.UserID, Phone: id.Phone}
}

// proofs collects whatever evidence the caller presented for a request.
func proofs(c *gin.Context) []usecase.AccessProof {
	var out []usecase.AccessProof
	if p := sessionProof(c); p != nil {
		out = append(out, *p)
	}
	tok := c.Query("token")
	if tok == "" {
		tok = c.GetHeader("X-Access-Token")
	}
	if tok != "" {
		out = append(out, usecase.TokenProof{Token: tok})
	}
	return out
}

func (s *Server) handleCreateServiceRequest(c *gin.Context) {
	image, err := s.formUpload(c, "referenceImage")
	if err != nil {
		s.fail(c, err)
		return
	}
	r, token, err := s.d.Requests.Create(c.Request.Context(), usecase.ServiceRequestInput{
		ServiceType:   c.PostForm("serviceType"),
		Title:         c.PostForm("title"),
		Description:   c.PostForm("description"),
		Address:       c.PostForm("address"),
		PreferredTime: c.PostForm("preferredTime"),
		UserName:      c.PostForm("userName"),
		UserPhone:     c.PostForm("userPhone"),
		Image:         image,
	}, sessionProof(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := gin.H{"id": r.ID, "request": r}
	if token != "" {
		resp["accessToken"] = token
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleGetServiceRequest(c *gin.Context) {
	d, err := s.d.Requests.Get(c.Request.Context(), c.Param("id"), proofs(c)...)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleSelectQuote(c *gin.Context) {
	var req struct {
		QuoteID string `json:"quoteId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "quoteId required")
		return
	}
	r, err := s.d.Requests.SelectQuote(c.Request.Context(), c.Param("id"), req.QuoteID, proofs(c)...)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// merchant resolves the calling merchant from a MERCHANT token or ?key=.
func (s *Server) merchant(c *gin.Context) (*domain.Merchant, bool) {
	key := c.Query("key")
	if key == "" {
		key = c.GetHeader("X-Merchant-Key")
	}
	m, err := s.d.Requests.MerchantFor(c.Request.Context(), identityOf(c), key)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return m, true
}

func (s *Server) handleMerchantDashboard(c *gin.Context) {
	m, ok := s.merchant(c)
	if !ok {
		return
	}
	d, err := s.d.Requests.Dashboard(c.Request.Context(), m)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleMerchantRequest(c *gin.Context) {
	m, ok := s.merchant(c)
	if !ok {
		return
	}
	v, err := s.d.Requests.MerchantView(c.Request.Context(), m, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type quoteReq struct {
	Price       string `json:"price" binding:"required"`
	Details     string `json:"details"`
	ContactInfo string `json:"contactInfo"`
}

func (s *Server) handleSubmitQuote(c *gin.Context) {
	m, ok := s.merchant(c)
	if !ok {
		return
	}
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "price required")
		return
	}
	q, err := s.d.Requests.UpsertQuote(c.Request.Context(), m, c.Param("id"), usecase.QuoteInput{
		Price:       req.Price,
		Details:     req.Details,
		ContactInfo: req.ContactInfo,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}
