package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Port      int
	LogJSON   bool
	LogLevel  string
	JWTSecret string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration
	CookieSecure  bool

	UploadsDir     string
	UploadMaxBytes int64
	PublicBaseURL  string
	GCSBucket      string
	GCSPrefix      string
	GCSPublic      bool

	ShopifyDomain     string
	ShopifyToken      string
	ShopifyAPIVersion string
	ShopifyTimeout    time.Duration
	OrderSourceTag    string
	OrderTags         []string
	ShippingCity      string
	ShippingProvince  string
	ShippingCountry   string

	KafkaBrokers []string
	KafkaTopic   string

	OTLPEndpoint     string
	TraceSampleRatio float64

	AdminUser     string
	AdminPassword string

	Regions     []string
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
}

func Default() Config {
	return Config{
		Env:               "dev",
		Port:              5000,
		LogJSON:           true,
		LogLevel:          "info",
		SessionTTL:        7 * 24 * time.Hour,
		UploadsDir:        "./uploads",
		UploadMaxBytes:    5 << 20,
		GCSPrefix:         "uploads",
		ShopifyDomain:     "example.myshopify.com",
		ShopifyAPIVersion: "2024-01",
		ShopifyTimeout:    20 * time.Second,
		OrderSourceTag:    "WeChat Group-buy",
		OrderTags:         []string{"TG", "WeChat Group-buy", "Local Payment"},
		ShippingCity:      "Sydney",
		ShippingProvince:  "NSW",
		ShippingCountry:   "AU",
		KafkaTopic:        "groupbuy.orders",
		TraceSampleRatio:  1,
		Regions:           []string{"Sydney CBD", "Inner West", "North Shore", "Eastern Suburbs"},
		CORSOrigins:       []string{"*"},
		RateLimit:         1,
		RateBurst:         10,
	}
}

// Load reads .env files without overriding variables already set, then
// applies GROUPBUY_* variables over the defaults.
func Load(files ...string) Config {
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
	return EnvDefaults()
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	str := func(k string, dst *string) {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}
	str("GROUPBUY_ENV", &c.Env)
	if v := os.Getenv("GROUPBUY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("GROUPBUY_LOG_JSON"); v != "" {
		c.LogJSON = parseBool(v, c.LogJSON)
	}
	str("GROUPBUY_LOG_LEVEL", &c.LogLevel)
	str("GROUPBUY_JWT_SECRET", &c.JWTSecret)
	str("GROUPBUY_DATABASE_URL", &c.DatabaseURL)

	str("GROUPBUY_REDIS_ADDR", &c.RedisAddr)
	str("GROUPBUY_REDIS_PASSWORD", &c.RedisPassword)
	if v := os.Getenv("GROUPBUY_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("GROUPBUY_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SessionTTL = d
		}
	}
	if v := os.Getenv("GROUPBUY_COOKIE_SECURE"); v != "" {
		c.CookieSecure = parseBool(v, c.CookieSecure)
	}

	str("GROUPBUY_UPLOADS_DIR", &c.UploadsDir)
	if v := os.Getenv("GROUPBUY_UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.UploadMaxBytes = n
		}
	}
	str("GROUPBUY_PUBLIC_BASE_URL", &c.PublicBaseURL)
	str("GROUPBUY_GCS_BUCKET", &c.GCSBucket)
	str("GROUPBUY_GCS_PREFIX", &c.GCSPrefix)
	if v := os.Getenv("GROUPBUY_GCS_PUBLIC"); v != "" {
		c.GCSPublic = parseBool(v, c.GCSPublic)
	}

	str("GROUPBUY_SHOPIFY_DOMAIN", &c.ShopifyDomain)
	str("GROUPBUY_SHOPIFY_ACCESS_TOKEN", &c.ShopifyToken)
	str("GROUPBUY_SHOPIFY_API_VERSION", &c.ShopifyAPIVersion)
	if v := os.Getenv("GROUPBUY_SHOPIFY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ShopifyTimeout = d
		}
	}
	str("GROUPBUY_ORDER_SOURCE_TAG", &c.OrderSourceTag)
	if v := splitList(os.Getenv("GROUPBUY_ORDER_TAGS")); len(v) > 0 {
		c.OrderTags = v
	}
	str("GROUPBUY_SHIPPING_CITY", &c.ShippingCity)
	str("GROUPBUY_SHIPPING_PROVINCE", &c.ShippingProvince)
	str("GROUPBUY_SHIPPING_COUNTRY", &c.ShippingCountry)

	if v := splitList(os.Getenv("GROUPBUY_KAFKA_BROKERS")); len(v) > 0 {
		c.KafkaBrokers = v
	}
	str("GROUPBUY_KAFKA_TOPIC", &c.KafkaTopic)

	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTLPEndpoint)
	str("GROUPBUY_OTLP_ENDPOINT", &c.OTLPEndpoint)
	if v := os.Getenv("GROUPBUY_TRACE_SAMPLE_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.TraceSampleRatio = f
		}
	}

	str("GROUPBUY_ADMIN_USER", &c.AdminUser)
	str("GROUPBUY_ADMIN_PASSWORD", &c.AdminPassword)

	if v := splitList(os.Getenv("GROUPBUY_REGIONS")); len(v) > 0 {
		c.Regions = v
	}
	if v := splitList(os.Getenv("GROUPBUY_CORS_ORIGINS")); len(v) > 0 {
		c.CORSOrigins = v
	}
	if v := os.Getenv("GROUPBUY_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit = f
		}
	}
	if v := os.Getenv("GROUPBUY_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
	return c
}

func parseBool(v string, def bool) bool {
	switch v {
	case "1", "true", "TRUE":
		return true
	case "0", "false", "FALSE":
		return false
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
