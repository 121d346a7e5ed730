package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"peptideprofessor/auth"
	"peptideprofessor/calculator"
	"peptideprofessor/catalog"
	"peptideprofessor/config"
	"peptideprofessor/contact"
	"peptideprofessor/content"
	"peptideprofessor/db"
	"peptideprofessor/httputil"
	"peptideprofessor/logging"
	"peptideprofessor/mail"
	"peptideprofessor/metrics"
	"peptideprofessor/newsletter"
	"peptideprofessor/originguard"
	"peptideprofessor/placeholder"
	"peptideprofessor/ratelimit"
	"peptideprofessor/telemetry"
	"peptideprofessor/translate"
)

const (
	serviceName = "Professor Peptides API"
	version     = "2.0.0"
)

// App owns every long-lived dependency. Handlers receive what they need
// from it; nothing is package-global.
type App struct {
	cfg        config.Config
	db         *db.CompatDB
	catalog    *catalog.Catalog
	content    content.Store
	limiter    *ratelimit.Limiter
	origins    *originguard.Validator
	audit      *calculator.AuditLog
	metrics    *metrics.Metrics
	mail       mail.Sender
	translator *translate.Client
	redis      *translate.RedisCache
	now        func() time.Time
}

func newApp(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg, metrics: metrics.New(), now: time.Now}

	var err error
	a.db, err = db.Open(ctx, db.Config{Driver: cfg.DBDriver, SQLitePath: cfg.DBPath, PostgresURL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a.catalog, err = catalog.Load()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if cfg.MinioEndpoint != "" {
		a.content, err = content.NewMinioStore(ctx, content.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccess,
			SecretKey: cfg.MinioSecret,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioSSL,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to minio: %w", err)
		}
	} else {
		a.content = content.DirStore{Dir: cfg.BlogContentDir}
	}

	a.audit, err = calculator.NewAuditLog(cfg.AuditLogSize)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.limiter = ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	a.origins = originguard.New(cfg.AllowedOrigins)

	if cfg.ResendAPIKey != "" {
		a.mail = mail.NewResendClient(cfg.ResendAPIKey, a.metrics)
	} else {
		zap.L().Warn("RESEND_API_KEY not set, outbound mail disabled")
		a.mail = mail.NopSender{}
	}

	var cache translate.Cache = translate.NewMemoryCache(10000, cfg.TranslateTTL)
	if cfg.RedisURL != "" {
		a.redis, err = translate.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		cache = a.redis
	}
	apiKey := cfg.DeepLAPIKey
	if apiKey == "" {
		apiKey = cfg.TestSpriteAPIKey
	}
	a.translator = translate.NewClient(apiKey, cfg.DeepLAPIURL, cache, cfg.TranslateTTL, a.metrics)

	return a, nil
}

// Close releases the database and cache connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			zap.L().Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			zap.L().Warn("close database", zap.Error(err))
		}
	}
}

func (a *App) routes() http.Handler {
	catalogH := &catalog.Handler{Catalog: a.catalog, Content: a.content, Now: a.now}
	calcH := &calculator.Handler{Peptides: a.catalog, Audit: a.audit, Metrics: a.metrics, Strict: a.cfg.MelanotanStrict}
	newsH := &newsletter.Handler{
		Store:   &newsletter.Store{DB: a.db},
		Mail:    a.mail,
		From:    a.cfg.MailFrom,
		SiteURL: a.cfg.SiteURL,
		Now:     a.now,
	}
	contactH := &contact.Handler{DB: a.db, Mail: a.mail, From: a.cfg.MailFrom, AdminEmail: a.cfg.AdminEmail, Now: a.now}
	translateH := &translate.Handler{Client: a.translator}
	authH := &auth.Handler{DB: a.db, JWTSecret: a.cfg.JWTSecret, Now: a.now}
	placeholderH := &placeholder.Handler{Now: a.now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.Middleware)
	r.Use(originguard.Middleware(a.origins))
	r.Use(ratelimit.Middleware(a.limiter, "/api/", a.metrics))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Professor Peptides API v2.0", "status": "running"})
	})
	r.Get("/api/health", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Get("/api/statistics", catalogH.HandleStatistics)
	r.Get("/api/peptides", catalogH.HandleListCategories)
	r.Get("/api/peptides/{slug}", catalogH.HandleGetPeptide)
	r.Get("/api/peptide-categories", catalogH.HandleListCategories)
	r.Get("/api/peptide-categories/{category}", catalogH.HandleGetCategory)
	r.Get("/api/blog", catalogH.HandleListBlog)
	r.Get("/api/blog/{slug}", catalogH.HandleGetBlogPost)
	r.Get("/api/blog-posts", catalogH.HandleBlogPosts)
	r.Get("/api/team-members", catalogH.HandleTeam)

	r.Post("/api/calculator/calculate", calcH.HandleReconstitution)
	r.Post("/api/calculators/melanotan-pro", calcH.HandleMelanotan)
	r.Post("/api/calculators/bmi", calcH.HandleBMI)

	r.Post("/api/newsletter/signup", newsH.HandleSignup)
	r.Get("/api/newsletter/confirm", newsH.HandleConfirm)
	r.Post("/api/contact", contactH.HandleSubmit)
	r.Post("/api/translate", translateH.HandleTranslate)

	r.Post("/api/auth/register", authH.HandleRegister)
	r.Post("/api/auth/login", authH.HandleLogin)
	r.Get("/api/products", placeholderH.HandleProducts)
	r.Get("/api/orders", placeholderH.HandleOrders)
	r.Get("/api/users", placeholderH.HandleUsers)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status":    "healthy",
		"timestamp": a.now().UTC().Format("2006-01-02T15:04:05.000000"),
		"service":   serviceName,
		"version":   version,
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.db.PingContext(ctx); err != nil {
		logging.FromContext(r.Context()).Error("health check: database unreachable", zap.Error(err))
		body["status"] = "degraded"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, flush := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	defer flush()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.TraceExporter)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	go app.limiter.Run(ctx, cfg.RateLimitSweep)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           telemetry.Handler(app.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API listening",
			zap.String("port", cfg.Port),
			zap.String("db_driver", string(app.db.Dialect)),
			zap.Strings("allowed_origins", cfg.AllowedOrigins))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	logger.Info("server shut down")
}
