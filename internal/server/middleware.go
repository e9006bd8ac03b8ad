package server

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/usecase"
)

const (
	requestIDKey = "requestId"
	identityKey  = "identity"
	sessionKey   = "sessionId"
	cartKey      = "cart"

	tokenCookie   = "gb_token"
	sessionCookie = "gb_session"
)

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = c.GetHeader("Idempotency-Key")
		}
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

var tracer = otel.Tracer("groupbuy-backend/internal/server")

// tracing starts a server span per request, continuing any trace the
// caller propagated.
func (s *Server) tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		span.SetAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("request.id", c.GetString(requestIDKey)),
		)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("requestId", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			fields = append(fields, zap.String("traceId", sc.TraceID().String()))
		}
		s.log.Info("request", fields...)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, v any) {
		s.log.Error("panic", zap.String("requestId", c.GetString(requestIDKey)), zap.Any("value", v))
		s.err(c, http.StatusInternalServerError, "ServerError", "internal error")
	})
}

// identity attaches the caller's verified token, if any. Invalid tokens are
// ignored here and rejected by requireUser.
func (s *Server) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tok = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		} else if v, err := c.Cookie(tokenCookie); err == nil {
			tok = v
		}
		if tok != "" && s.d.Auth != nil {
			if id, err := s.d.Auth.Verify(tok); err == nil {
				c.Set(identityKey, &id)
			}
		}
		c.Next()
	}
}

func identityOf(c *gin.Context) *usecase.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*usecase.Identity)
	return id
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identityOf(c) == nil {
			s.err(c, http.StatusUnauthorized, "Unauthorized", "sign in required")
			return
		}
		c.Next()
	}
}

// requireAdmin accepts an ADMIN token or the configured basic credentials.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := identityOf(c); id != nil && id.Role == domain.RoleAdmin {
			c.Next()
			return
		}
		if user, pass, ok := c.Request.BasicAuth(); ok && s.cfg.AdminPassword != "" {
			u := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.AdminUser))
			p := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.AdminPassword))
			if u&p == 1 {
				c.Next()
				return
			}
		}
		c.Header("WWW-Authenticate", `Basic realm="admin"`)
		s.err(c, http.StatusUnauthorized, "Unauthorized", "admin credentials required")
	}
}

// withCart loads the session cart, issuing a session cookie on first use.
func (s *Server) withCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(sessionCookie)
		if err != nil || sid == "" {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, sid, int(s.cfg.SessionTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
		}
		cart, err := s.d.Sessions.Load(c.Request.Context(), sid)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(sessionKey, sid)
		c.Set(cartKey, cart)
		c.Next()
	}
}

func cartOf(c *gin.Context) domain.Cart {
	if v, ok := c.Get(cartKey); ok {
		if cart, ok := v.(domain.Cart); ok && cart != nil {
			return cart
		}
	}
	cart := domain.Cart{}
	c.Set(cartKey, cart)
	return cart
}

func (s *Server) saveCart(c *gin.Context, cart domain.Cart) error {
	return s.d.Sessions.Save(c.Request.Context(), c.GetString(sessionKey), cart)
}

type ipLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	ttl      time.Duration
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		visitors: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		ttl:      10 * time.Minute,
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.visitors[ip]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.visitors[ip] = lim
	time.AfterFunc(l.ttl, func() {
		l.mu.Lock()
		delete(l.visitors, ip)
		l.mu.Unlock()
	})
	return lim
}

// rateLimit throttles anonymous write endpoints per client address.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.RateLimit <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if ip == "" {
			ip, _, _ = net.SplitHostPort(c.Request.RemoteAddr)
		}
		if !s.limiter.get(ip).Allow() {
			s.err(c, http.StatusTooManyRequests, "TooManyRequests", "too many requests")
			return
		}
		c.Next()
	}
}
