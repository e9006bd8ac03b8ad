package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"groupbuy-backend/internal/config"
	"groupbuy-backend/internal/infrastructure/session"
	"groupbuy-backend/internal/usecase"
)

type ImageSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

type Deps struct {
	Auth     *usecase.AuthService
	Orders   *usecase.OrderService
	Payments *usecase.PaymentService
	Carts    *usecase.CartService
	Packages *usecase.PackageService
	Requests *usecase.ServiceRequestService
	Merchant *usecase.MerchantService
	Bookings *usecase.BookingService
	Accounts *usecase.AccountService
	Admin    *usecase.AdminService
	Mappings *usecase.MappingService
	Sessions session.Store
	Images   ImageSigner
	Log      *zap.Logger
	// Ping reports storage health for /health.
	Ping func(ctx context.Context) error
}

type Server struct {
	cfg     config.Config
	d       Deps
	log     *zap.Logger
	engine  *gin.Engine
	limiter *ipLimiter
}

func New(cfg config.Config, d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:     cfg,
		d:       d,
		log:     d.Log,
		engine:  gin.New(),
		limiter: newIPLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.engine.MaxMultipartMemory = cfg.UploadMaxBytes + 1<<20
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "Idempotency-Key", "traceparent", "tracestate"},
		AllowCredentials: true,
	})
	return c.Handler(s.engine)
}

func (s *Server) routes() {
	r := s.engine
	r.Use(s.requestID(), s.tracing(), s.accessLog(), s.recovery(), s.identity())

	if s.cfg.UploadsDir != "" {
		r.Static("/uploads", s.cfg.UploadsDir)
	}
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	api.POST("/auth/register", s.rateLimit(), s.handleRegister)
	api.POST("/auth/login", s.rateLimit(), s.handleLogin)
	api.GET("/auth/me", s.requireUser(), s.handleMe)

	api.GET("/packages", s.handleListPackages)
	api.GET("/packages/:id", s.handleGetPackage)

	cart := api.Group("/cart", s.withCart())
	cart.GET("", s.handleGetCart)
	cart.POST("/set", s.handleSetCart)
	cart.POST("/item", s.handleSetCartItem)
	cart.POST("/clear", s.handleClearCart)
	cart.POST("/checkout", s.requireUser(), s.handleCheckout)

	api.POST("/orders", s.rateLimit(), s.handleCreateOrder)
	api.GET("/me/orders", s.requireUser(), s.handleMyOrders)
	api.GET("/me/account", s.requireUser(), s.handleAccount)
	api.GET("/me/service-requests", s.requireUser(), s.handleMyServiceRequests)
	api.GET("/payment/:orderId", s.requireUser(), s.handlePaymentView)
	api.POST("/payment/:orderId", s.requireUser(), s.handleCapturePayment)
	api.GET("/images/*key", s.handleImage)

	api.POST("/service-requests", s.rateLimit(), s.handleCreateServiceRequest)
	api.GET("/service-requests/:id", s.handleGetServiceRequest)
	api.POST("/service-requests/:id/select", s.handleSelectQuote)

	api.GET("/services", s.handleListServices)
	api.GET("/services/:id", s.handleGetService)
	api.POST("/service-bookings", s.rateLimit(), s.handleCreateBooking)
	api.GET("/service-bookings/:id", s.handleGetBooking)

	api.GET("/merchants", s.handleSearchMerchants)
	api.GET("/merchants/:id", s.handleMerchantDetail)

	m := api.Group("/merchant")
	m.GET("/requests", s.handleMerchantDashboard)
	m.GET("/requests/:id", s.handleMerchantRequest)
	m.POST("/requests/:id/quote", s.rateLimit(), s.handleSubmitQuote)
	m.POST("/onboard", s.requireUser(), s.handleOnboard)
	m.GET("/me", s.requireUser(), s.handleMerchantHome)
	m.PUT("/profile", s.requireUser(), s.handleUpdateProfile)
	m.POST("/packages", s.requireUser(), s.handleMerchantCreatePackage)
	m.DELETE("/packages/:id", s.requireUser(), s.handleMerchantDeletePackage)
	m.POST("/services", s.requireUser(), s.handleMerchantCreateService)
	m.DELETE("/services/:id", s.requireUser(), s.handleMerchantDeleteService)

	a := api.Group("/admin", s.requireAdmin())
	a.GET("/orders", s.handleAdminListOrders)
	a.GET("/orders/:id", s.handleAdminGetOrder)
	a.PATCH("/orders/:id/status", s.handleAdminUpdateStatus)
	a.DELETE("/orders/:id", s.handleAdminDeleteOrder)
	a.POST("/orders/:id/sync", s.handleAdminResync)

	a.GET("/packages", s.handleAdminListPackages)
	a.GET("/packages/:id", s.handleAdminGetPackage)
	a.POST("/packages", s.handleAdminCreatePackage)
	a.PATCH("/packages/:id", s.handleAdminUpdatePackage)
	a.DELETE("/packages/:id", s.handleAdminDeletePackage)

	a.GET("/product-mappings", s.handleListMappings)
	a.GET("/product-mappings/:id", s.handleGetMapping)
	a.POST("/product-mappings", s.handleUpsertMapping)
	a.POST("/product-mappings/batch", s.handleBatchMappings)
	a.PATCH("/product-mappings/:id", s.handleUpdateMapping)
	a.DELETE("/product-mappings/:id", s.handleDeleteMapping)

	a.GET("/merchants", s.handleListMerchants)
	a.POST("/merchants", s.handleCreateMerchant)
	a.PATCH("/merchants/:id", s.handleUpdateMerchant)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.d.Ping != nil {
		if err := s.d.Ping(c.Request.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			s.err(c, http.StatusServiceUnavailable, "Unavailable", "storage unreachable")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
