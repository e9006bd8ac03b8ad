package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/usecase"
)

type registerReq struct {
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type loginReq struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) setToken(c *gin.Context, tok string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, tok, int(s.d.Auth.TokenTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "phone and password required")
		return
	}
	tok, u, err := s.d.Auth.Register(c.Request.Context(), req.Phone, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setToken(c, tok)
	c.JSON(http.StatusCreated, gin.H{"token": tok, "user": u})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "phone and password required")
		return
	}
	tok, u, err := s.d.Auth.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setToken(c, tok)
	c.JSON(http.StatusOK, gin.H{"token": tok, "user": u})
}

func (s *Server) handleMe(c *gin.Context) {
	id := identityOf(c)
	c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "phone": id.Phone, "role": id.Role})
}

func (s *Server) handleListPackages(c *gin.Context) {
	pkgs, err := s.d.Packages.ListActive(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

func (s *Server) handleGetPackage(c *gin.Context) {
	p, err := s.d.Packages.GetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) renderCart(c *gin.Context, cart domain.Cart) {
	v, err := s.d.Carts.View(c.Request.Context(), cart)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleGetCart(c *gin.Context) {
	s.renderCart(c, cartOf(c))
}

// handleSetCart replaces the whole cart with {"cart": {packageId: qty}}.
func (s *Server) handleSetCart(c *gin.Context) {
	var req struct {
		Cart map[string]any `json:"cart"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid json")
		return
	}
	cart := domain.NewCart(req.Cart)
	if err := s.saveCart(c, cart); err != nil {
		s.fail(c, err)
		return
	}
	s.renderCart(c, cart)
}

func (s *Server) handleSetCartItem(c *gin.Context) {
	var req struct {
		PackageID string `json:"packageId" binding:"required"`
		Quantity  any    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "packageId required")
		return
	}
	cart := cartOf(c)
	cart.Set(req.PackageID, domain.NormalizeQty(req.Quantity))
	if err := s.saveCart(c, cart); err != nil {
		s.fail(c, err)
		return
	}
	s.renderCart(c, cart)
}

func (s *Server) handleClearCart(c *gin.Context) {
	cart := cartOf(c)
	cart.Clear()
	if err := s.saveCart(c, cart); err != nil {
		s.fail(c, err)
		return
	}
	s.renderCart(c, cart)
}

type checkoutReq struct {
	CustomerName string `json:"customerName" binding:"required"`
	Address      string `json:"address" binding:"required"`
	DeliveryTime string `json:"deliveryTime" binding:"required"`
	Note         string `json:"optionalNote"`
}

func (s *Server) handleCheckout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "customerName, address and deliveryTime are required")
		return
	}
	cart := cartOf(c)
	o, err := s.d.Orders.Checkout(c.Request.Context(), identityOf(c).UserID, cart, usecase.CheckoutInput{
		CustomerName: req.CustomerName,
		Address:      req.Address,
		DeliveryTime: req.DeliveryTime,
		Note:         req.Note,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	cart.Clear()
	if err := s.saveCart(c, cart); err != nil {
		s.log.Warn("cart not cleared after checkout", zap.Error(err))
	}
	c.JSON(http.StatusCreated, gin.H{"orderId": o.ID, "order": o})
}

// handleCreateOrder accepts a multipart form: scalar fields, an "items" JSON
// array and an optional "paymentProof" image.
func (s *Server) handleCreateOrder(c *gin.Context) {
	var items []domain.LineItem
	if raw := c.PostForm("items"); raw != "" {
		if err := decodeJSON(raw, &items); err != nil {
			s.badRequest(c, "items must be a JSON array")
			return
		}
	}
	proof, err := s.formUpload(c, "paymentProof")
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.d.Orders.CreateDirect(c.Request.Context(), usecase.DirectOrderInput{
		CustomerName:  c.PostForm("customerName"),
		Phone:         c.PostForm("phone"),
		Address:       c.PostForm("address"),
		DeliveryTime:  c.PostForm("deliveryTime"),
		Items:         items,
		PackageID:     c.PostForm("packageId"),
		PaymentMethod: c.PostForm("paymentMethod"),
		Note:          c.PostForm("optionalNote"),
		Proof:         proof,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	status := http.StatusCreated
	if out.Remote.State == usecase.RemoteFailed {
		status = http.StatusAccepted
	}
	c.JSON(status, out)
}

func (s *Server) handleMyOrders(c *gin.Context) {
	orders, err := s.d.Orders.MyOrders(c.Request.Context(), identityOf(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handlePaymentView(c *gin.Context) {
	v, err := s.d.Payments.View(c.Request.Context(), identityOf(c).Phone, c.Param("orderId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleCapturePayment(c *gin.Context) {
	proof, err := s.formUpload(c, "paymentProof")
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.d.Payments.Capture(c.Request.Context(), identityOf(c).Phone, c.Param("orderId"), c.PostForm("paymentMethod"), proof)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// handleImage redirects to a short-lived signed URL for a private object.
func (s *Server) handleImage(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") || s.d.Images == nil {
		s.err(c, http.StatusNotFound, "NotFound", "image not found")
		return
	}
	u, err := s.d.Images.SignedURL(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, u)
}

func decodeJSON(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}
