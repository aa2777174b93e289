package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fsblobstore "github.com/bodyforce/admin-api/internal/adapters/filesystem/blobstore"
	"github.com/bodyforce/admin-api/internal/adapters/httpapi"
	"github.com/bodyforce/admin-api/internal/adapters/mail/logmail"
	sendgridmail "github.com/bodyforce/admin-api/internal/adapters/mail/sendgrid"
	memblobstore "github.com/bodyforce/admin-api/internal/adapters/memory/blobstore"
	memidempotency "github.com/bodyforce/admin-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/bodyforce/admin-api/internal/adapters/memory/memberrepo"
	mempaymentrepo "github.com/bodyforce/admin-api/internal/adapters/memory/paymentrepo"
	mempresencerepo "github.com/bodyforce/admin-api/internal/adapters/memory/presencerepo"
	memurlcache "github.com/bodyforce/admin-api/internal/adapters/memory/urlcache"
	memuserrepo "github.com/bodyforce/admin-api/internal/adapters/memory/userrepo"
	postgres "github.com/bodyforce/admin-api/internal/adapters/postgres"
	pgidempotency "github.com/bodyforce/admin-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/bodyforce/admin-api/internal/adapters/postgres/memberrepo"
	pgpaymentrepo "github.com/bodyforce/admin-api/internal/adapters/postgres/paymentrepo"
	pgpresencerepo "github.com/bodyforce/admin-api/internal/adapters/postgres/presencerepo"
	pguserrepo "github.com/bodyforce/admin-api/internal/adapters/postgres/userrepo"
	redisurlcache "github.com/bodyforce/admin-api/internal/adapters/redis/urlcache"
	"github.com/bodyforce/admin-api/internal/app/auth"
	"github.com/bodyforce/admin-api/internal/app/files"
	"github.com/bodyforce/admin-api/internal/app/members"
	"github.com/bodyforce/admin-api/internal/app/payments"
	"github.com/bodyforce/admin-api/internal/app/presences"
	"github.com/bodyforce/admin-api/internal/app/stats"
	"github.com/bodyforce/admin-api/internal/platform/auth/tokens"
	platformclock "github.com/bodyforce/admin-api/internal/platform/clock"
	"github.com/bodyforce/admin-api/internal/platform/config"
	"github.com/bodyforce/admin-api/internal/platform/logging"
	"github.com/bodyforce/admin-api/internal/platform/metrics"
	blobstoreport "github.com/bodyforce/admin-api/internal/ports/out/blobstore"
	idempotencyport "github.com/bodyforce/admin-api/internal/ports/out/idempotency"
	mailerport "github.com/bodyforce/admin-api/internal/ports/out/mailer"
	memberrepoport "github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
	paymentrepoport "github.com/bodyforce/admin-api/internal/ports/out/paymentrepo"
	presencerepoport "github.com/bodyforce/admin-api/internal/ports/out/presencerepo"
	urlcacheport "github.com/bodyforce/admin-api/internal/ports/out/urlcache"
	userrepoport "github.com/bodyforce/admin-api/internal/ports/out/userrepo"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	clk := platformclock.NewSystemClock()
	m := metrics.New()

	// Auth configuration:
	// - Production: AUTH_SECRET signs bearer tokens issued by /auth/signin
	// - Local dev: set AUTH_MODE=dev to skip token checks and use X-Debug-Subject
	tm := tokens.New(cfg.Auth)
	var authMW func(http.Handler) http.Handler
	switch cfg.Auth.Mode {
	case "dev":
		log.Warn("dev auth enabled; requests are trusted from X-Debug-Subject")
		authMW = httpapi.NewDevAuthMiddleware(cfg.Auth.DevSubject)
	default:
		authMW = httpapi.NewAuthMiddleware(tm)
	}

	var (
		memberRepo   memberrepoport.Repository
		presenceRepo presencerepoport.Repository
		paymentRepo  paymentrepoport.Repository
		userRepo     userrepoport.Repository
		idemStore    idempotencyport.Store
	)
	switch cfg.StorageBackend {
	case "postgres":
		if cfg.RunMigrations {
			if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			log.Info("migrations applied")
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return err
		}
		defer pool.Close()

		memberRepo = pgmemberrepo.NewRepo(pool)
		presenceRepo = pgpresencerepo.NewRepo(pool)
		paymentRepo = pgpaymentrepo.NewRepo(pool)
		userRepo = pguserrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStoreWithTTL(pool, cfg.IdempotencyTTL, clk)
	default:
		memberRepo = memmemberrepo.NewRepo()
		presenceRepo = mempresencerepo.NewRepo()
		paymentRepo = mempaymentrepo.NewRepo()
		userRepo = memuserrepo.NewRepo()
		idemStore = memidempotency.NewStoreWithTTL(cfg.IdempotencyTTL, clk)
	}

	var objects blobstoreport.Store
	switch cfg.BlobBackend {
	case "filesystem":
		fs, err := fsblobstore.NewStore(cfg.BlobDir)
		if err != nil {
			return err
		}
		objects = fs
	default:
		objects = memblobstore.NewStore()
	}

	var urls urlcacheport.Cache
	switch cfg.URLCache {
	case "redis":
		rc, err := redisurlcache.NewCache(ctx, redisurlcache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.URLCacheTTL,
		})
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		urls = rc
	default:
		urls = memurlcache.NewCache()
	}

	var mail mailerport.Mailer
	switch cfg.Mail.Backend {
	case "sendgrid":
		mail = sendgridmail.New(cfg.Mail.SendgridAPIKey, "BodyForce", cfg.Mail.FromName, cfg.Mail.From)
	default:
		mail = logmail.New(log)
	}

	filesSvc := files.NewService(objects, urls, memberRepo, clk, cfg.PublicBaseURL)
	filesSvc.Log = log
	paymentSvc := payments.NewService(paymentRepo, memberRepo, clk)
	memberSvc := members.NewService(memberRepo, clk)
	memberSvc.Files = filesSvc
	memberSvc.Payments = paymentSvc
	memberSvc.Log = log
	presenceSvc := presences.NewService(presenceRepo, memberRepo, clk)
	presenceSvc.Metrics = m
	presenceSvc.Location = cfg.Location
	statsSvc := stats.NewService(presenceRepo, memberRepo, paymentSvc, clk)
	statsSvc.Log = log
	statsSvc.Location = cfg.Location
	authSvc := auth.NewService(userRepo, memberRepo, tm, mail, clk, auth.Config{
		AllowSignup:     cfg.Auth.AllowSignup,
		InvitationTTL:   cfg.InvitationTTL,
		FrontendBaseURL: cfg.FrontendBaseURL,
	})
	authSvc.Log = log
	authSvc.Metrics = m

	api := httpapi.NewServer(memberSvc, presenceSvc, paymentSvc, statsSvc, filesSvc, authSvc, idemStore, clk)
	api.Log = log
	api.Location = cfg.Location
	api.Reports.Metrics = m

	opts := httpapi.RouterOptions{AuthMiddleware: authMW}
	if cfg.MetricsEnabled {
		opts.Metrics = m
		opts.MetricsHandler = m.Handler()
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewRouterWithOptions(api, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", srv.Addr, "storage", cfg.StorageBackend, "blobs", cfg.BlobBackend, "auth", cfg.Auth.Mode, "tz", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
