package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/usecase"
)

func (s *Server) handleAdminListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	f := domain.OrderFilter{
		Phone:        c.Query("phone"),
		Region:       c.Query("region"),
		DeliveryDate: c.Query("deliveryDate"),
		Page:         page,
		Limit:        limit,
	}
	if v := c.Query("status"); v != "" && v != "all" {
		st, ok := domain.ParseOrderStatus(v)
		if !ok {
			s.badRequest(c, "unknown status")
			return
		}
		f.Status = st
	}
	out, err := s.d.Admin.ListOrders(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAdminGetOrder(c *gin.Context) {
	o, err := s.d.Admin.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleAdminUpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"internalStatus" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "internalStatus required")
		return
	}
	o, err := s.d.Admin.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleAdminDeleteOrder(c *gin.Context) {
	if err := s.d.Admin.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleAdminResync(c *gin.Context) {
	out, err := s.d.Admin.ResyncOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAdminListPackages(c *gin.Context) {
	pkgs, err := s.d.Packages.ListAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

func (s *Server) handleAdminGetPackage(c *gin.Context) {
	p, err := s.d.Packages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleAdminCreatePackage(c *gin.Context) {
	var in usecase.PackageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, "invalid json")
		return
	}
	p, err := s.d.Packages.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleAdminUpdatePackage(c *gin.Context) {
	var in usecase.PackageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, "invalid json")
		return
	}
	p, err := s.d.Packages.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleAdminDeletePackage(c *gin.Context) {
	if err := s.d.Packages.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleListMappings(c *gin.Context) {
	ms, err := s.d.Mappings.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if ms == nil {
		ms = []domain.ProductNameMapping{}
	}
	c.JSON(http.StatusOK, gin.H{"mappings": ms})
}

func (s *Server) handleGetMapping(c *gin.Context) {
	m, err := s.d.Mappings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleUpsertMapping(c *gin.Context) {
	var in usecase.MappingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, "invalid json")
		return
	}
	m, err := s.d.Mappings.Upsert(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleBatchMappings(c *gin.Context) {
	var req struct {
		Mappings []usecase.MappingInput `json:"mappings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid json")
		return
	}
	saved, skipped, err := s.d.Mappings.Batch(c.Request.Context(), req.Mappings)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved, "count": len(saved), "skipped": skipped})
}

func (s *Server) handleUpdateMapping(c *gin.Context) {
	var p usecase.MappingPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		s.badRequest(c, "invalid json")
		return
	}
	m, err := s.d.Mappings.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleDeleteMapping(c *gin.Context) {
	if err := s.d.Mappings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleListMerchants(c *gin.Context) {
	ms, err := s.d.Admin.ListMerchants(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if ms == nil {
		ms = []domain.Merchant{}
	}
	c.JSON(http.StatusOK, gin.H{"merchants": ms})
}

type merchantReq struct {
	Name         string `json:"name" binding:"required"`
	UserID       string `json:"userId"`
	DashboardKey string `json:"dashboardKey"`
	Active       *bool  `json:"isActive"`
}

func (s *Server) handleCreateMerchant(c *gin.Context) {
	var req merchantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "name required")
		return
	}
	m, key, err := s.d.Admin.CreateMerchant(c.Request.Context(), usecase.MerchantInput{
		Name:         req.Name,
		UserID:       req.UserID,
		DashboardKey: req.DashboardKey,
		Active:       req.Active,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"merchant": m, "dashboardKey": key})
}

func (s *Server) handleUpdateMerchant(c *gin.Context) {
	var req struct {
		Active *bool `json:"isActive" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "isActive required")
		return
	}
	m, err := s.d.Admin.SetMerchantActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
