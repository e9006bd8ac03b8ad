package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"groupbuy-backend/internal/usecase"
)

func (s *Server) profileForm(c *gin.Context) (usecase.MerchantProfileInput, bool) {
	image, err := s.formUpload(c, "image")
	if err != nil {
		s.fail(c, err)
		return usecase.MerchantProfileInput{}, false
	}
	name := c.PostForm("name")
	if name == "" {
		name = c.PostForm("storeName")
	}
	return usecase.MerchantProfileInput{
		Name:        name,
		ContactName: c.PostForm("contactName"),
		Phone:       c.PostForm("phone"),
		WeChat:      c.PostForm("wechat"),
		Email:       c.PostForm("email"),
		Description: c.PostForm("description"),
		Address:     c.PostForm("address"),
		OpenHours:   c.PostForm("openHours"),
		ImageURL:    c.PostForm("imageUrl"),
		Image:       image,
	}, true
}

// handleOnboard upgrades the caller to a merchant and reissues their token
// with the new role.
func (s *Server) handleOnboard(c *gin.Context) {
	in, ok := s.profileForm(c)
	if !ok {
		return
	}
	m, u, err := s.d.Merchant.Onboard(c.Request.Context(), identityOf(c).UserID, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	tok, err := s.d.Auth.Issue(u)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setToken(c, tok)
	c.JSON(http.StatusOK, gin.H{"merchant": m, "user": u, "token": tok})
}

func (s *Server) handleMerchantHome(c *gin.Context) {
	home, err := s.d.Merchant.Mine(c.Request.Context(), identityOf(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, home)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	in, ok := s.profileForm(c)
	if !ok {
		return
	}
	m, err := s.d.Merchant.UpdateProfile(c.Request.Context(), identityOf(c).UserID, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleMerchantCreatePackage(c *gin.Context) {
	var in usecase.PackageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, "invalid json")
		return
	}
	p, err := s.d.Merchant.CreatePackage(c.Request.Context(), identityOf(c).UserID, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleMerchantDeletePackage(c *gin.Context) {
	if err := s.d.Merchant.DeletePackage(c.Request.Context(), identityOf(c).UserID, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleMerchantCreateService(c *gin.Context) {
	var in usecase.ServiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, "invalid json")
		return
	}
	sv, err := s.d.Merchant.CreateService(c.Request.Context(), identityOf(c).UserID, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sv)
}

func (s *Server) handleMerchantDeleteService(c *gin.Context) {
	if err := s.d.Merchant.DeleteService(c.Request.Context(), identityOf(c).UserID, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleSearchMerchants(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	dir, err := s.d.Merchant.Search(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dir)
}

func (s *Server) handleMerchantDetail(c *gin.Context) {
	d, err := s.d.Merchant.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
