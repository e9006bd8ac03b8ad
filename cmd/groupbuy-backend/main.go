package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"groupbuy-backend/internal/config"
	"groupbuy-backend/internal/infrastructure/asset"
	"groupbuy-backend/internal/infrastructure/events"
	"groupbuy-backend/internal/infrastructure/repo"
	"groupbuy-backend/internal/infrastructure/session"
	"groupbuy-backend/internal/infrastructure/shopify"
	"groupbuy-backend/internal/logging"
	"groupbuy-backend/internal/server"
	"groupbuy-backend/internal/telemetry"
	"groupbuy-backend/internal/usecase"
)

type store interface {
	usecase.OrderRepo
	usecase.PackageRepo
	usecase.UserRepo
	usecase.MerchantRepo
	usecase.ServiceRequestRepo
	usecase.MappingRepo
	usecase.ServiceCatalogRepo
}

func main() {
	envDefaults := config.Load(".env", ".env.local")

	env := flag.String("env", envDefaults.Env, "")
	port := flag.Int("port", envDefaults.Port, "")
	uploads := flag.String("uploads", envDefaults.UploadsDir, "")
	dsn := flag.String("database-url", envDefaults.DatabaseURL, "")
	redisAddr := flag.String("redis-addr", envDefaults.RedisAddr, "")
	jwtSecret := flag.String("jwt-secret", envDefaults.JWTSecret, "")
	logJSON := flag.Bool("log-json", envDefaults.LogJSON, "")
	logLevel := flag.String("log-level", envDefaults.LogLevel, "")

	flag.Parse()

	cfg := envDefaults
	cfg.Env = *env
	cfg.Port = *port
	cfg.UploadsDir = *uploads
	cfg.DatabaseURL = *dsn
	cfg.RedisAddr = *redisAddr
	cfg.JWTSecret = *jwtSecret
	cfg.LogJSON = *logJSON
	cfg.LogLevel = *logLevel

	log, err := logging.New(cfg.LogJSON, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	if cfg.JWTSecret == "" {
		if cfg.Env != "dev" {
			return errors.New("GROUPBUY_JWT_SECRET is required outside dev")
		}
		cfg.JWTSecret = "dev-secret"
		log.Warn("using the development JWT secret")
	}
	ensureDir(cfg.UploadsDir)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: "groupbuy-backend",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()
	if cfg.OTLPEndpoint == "" {
		log.Info("no OTLP endpoint, spans are not exported")
	}

	var (
		st   store
		ping func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		pg, err := repo.NewPostgresRepo(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pg.Close()
		st, ping = pg, pg.Ping
		log.Info("using postgres storage")
	} else {
		st = repo.NewMemoryRepo()
		log.Warn("GROUPBUY_DATABASE_URL not set, data is kept in memory")
	}

	var carts session.Store
	if cfg.RedisAddr != "" {
		rs := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
		defer rs.Close()
		carts = rs
	} else {
		carts = session.NewMemoryStore(cfg.SessionTTL)
	}

	local := asset.NewFSWriter(cfg.UploadsDir, cfg.PublicBaseURL)
	assets := &asset.Mux{Primary: local, Local: local}
	var images server.ImageSigner
	if cfg.GCSBucket != "" {
		gcs, err := asset.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix, cfg.GCSPublic)
		if err != nil {
			return fmt.Errorf("gcs: %w", err)
		}
		defer gcs.Close()
		assets.Primary, assets.GCS = gcs, gcs
		images = assets
	}

	sinks := []events.Sink{events.LogSink{Log: log.Named("events")}}
	if len(cfg.KafkaBrokers) > 0 {
		k, err := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer k.Close()
		sinks = append(sinks, k)
	}
	bus := events.NewDispatcher(events.Config{Workers: 2, ChannelSize: 512}, log, sinks...)

	platform := &shopify.Client{
		Domain:      cfg.ShopifyDomain,
		AccessToken: cfg.ShopifyToken,
		APIVersion:  cfg.ShopifyAPIVersion,
		HTTP:        &http.Client{Timeout: cfg.ShopifyTimeout},
	}
	if !platform.Configured() {
		log.Warn("shopify not configured, orders stay local")
	}

	mappings := &usecase.MappingService{Repo: st, Log: log}
	sync := &usecase.SyncService{
		Orders:    st,
		Platform:  platform,
		Events:    bus,
		Log:       log,
		Timeout:   cfg.ShopifyTimeout,
		SourceTag: cfg.OrderSourceTag,
		Tags:      cfg.OrderTags,
		City:      cfg.ShippingCity,
		Province:  cfg.ShippingProvince,
		Country:   cfg.ShippingCountry,
	}

	packages := &usecase.PackageService{Packages: st, Mappings: mappings, Regions: cfg.Regions}

	srv := server.New(cfg, server.Deps{
		Auth:     &usecase.AuthService{Users: st, JWTSecret: cfg.JWTSecret, TokenTTL: cfg.SessionTTL},
		Orders:   &usecase.OrderService{Orders: st, Packages: st, Users: st, Mappings: mappings, Assets: assets, Sync: sync, Events: bus, Log: log},
		Payments: &usecase.PaymentService{Orders: st, Assets: assets, Sync: sync, Events: bus, Log: log},
		Carts:    &usecase.CartService{Packages: st, Mappings: mappings},
		Packages: packages,
		Requests: &usecase.ServiceRequestService{Requests: st, Merchants: st, Assets: assets, Events: bus, Log: log},
		Merchant: &usecase.MerchantService{Merchants: st, Users: st, Packages: packages, Catalog: st, Assets: assets, Events: bus, Log: log},
		Bookings: &usecase.BookingService{Catalog: st, Assets: assets, Events: bus, Log: log},
		Accounts: &usecase.AccountService{Users: st, Orders: st, Requests: st, Catalog: st},
		Admin:    &usecase.AdminService{Orders: st, Merchants: st, Assets: assets, Sync: sync, Events: bus, Log: log},
		Mappings: mappings,
		Sessions: carts,
		Images:   images,
		Log:      log,
		Ping:     ping,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", httpSrv.Addr), zap.String("env", cfg.Env))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return bus.Close(shutdownCtx)
}

func ensureDir(p string) {
	if p == "" {
		return
	}
	if _, err := os.Stat(p); os.IsNotExist(err) {
		_ = os.MkdirAll(p, 0o755)
	}
}
