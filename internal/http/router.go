// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Two route surfaces share one engine:
//   - The dashboard API under cfg.APIBasePath, bearer-token authenticated,
//     CORS-restricted to configured origins, limited per account.
//   - The widget surface (/widget/*, /widget.js), unauthenticated, always
//     served with permissive CORS because the embed runs on arbitrary
//     third-party pages, and rate limited per IP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/snapback/snapback-backend/internal/auth"
	"github.com/snapback/snapback-backend/internal/config"
	"github.com/snapback/snapback-backend/internal/http/handlers"
	"github.com/snapback/snapback-backend/internal/http/middleware"
	"github.com/snapback/snapback-backend/internal/repo"
	"github.com/snapback/snapback-backend/internal/services"
	"github.com/snapback/snapback-backend/internal/storage"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Security headers
//
// Per-surface middleware (CORS, auth, idempotency, rate limits) is attached
// on the route groups, not the engine, so the widget stays reachable even
// when the dashboard origin allowlist is strict.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, store storage.ScreenshotStore, tokens *auth.JWT, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			middleware.HeaderIdempotencyKey,
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (2 MiB, screenshots ride in the body)
	r.Use(limitBody(2 << 20))

	// 6) Compress responses; feedback pages gzip well
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.CodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.CodeNotFound, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/config
	accountSvc := &services.AccountService{DB: db, Tokens: tokens}
	projectSvc := services.NewProjectService(db)
	feedbackSvc := &services.FeedbackService{DB: db, MaxMessageRunes: cfg.MaxMessageRunes}
	widgetSvc := services.NewWidgetService(db, store, cfg.InitCacheTTL)
	widgetSvc.MaxScreenshotKB = cfg.MaxScreenshotKB
	widgetSvc.MaxMessageRunes = cfg.MaxMessageRunes
	widgetSvc.IdempotencyTTL = cfg.IdempotencyTTL
	billing := &services.LocalBilling{Accounts: accountSvc}

	authH := handlers.NewAuthHandlers(accountSvc)
	projectH := handlers.NewProjectHandlers(projectSvc)
	feedbackH := handlers.NewFeedbackHandlers(feedbackSvc, projectSvc)
	widgetH := handlers.NewWidgetHandlers(widgetSvc, cfg.PublicBaseURL)
	userH := handlers.NewUserHandlers(accountSvc)
	billingH := handlers.NewBillingHandlers(billing)

	registerWidgetRoutes(r, db, widgetSvc, widgetH, cfg)
	registerDashboardRoutes(r, tokens, authH, projectH, feedbackH, userH, billingH, cfg)
}

// registerWidgetRoutes mounts the public widget surface.
func registerWidgetRoutes(r *gin.Engine, db *gorm.DB, widgetSvc *services.WidgetService, h *handlers.WidgetHandlers, cfg config.Config) {
	w := r.Group("")
	w.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After", "Idempotency-Replayed"},
		AllowCredentials: false, // must remain false with AllowAllOrigins
		MaxAge:           12 * time.Hour,
	}))

	// Per-IP limiter shared by both init methods.
	initRL := middleware.NewRateLimiter(cfg.Rate.APIPerWindow, cfg.Rate.Window, middleware.KeyByIP())
	w.GET("/widget/init", initRL.Handler(), h.Init)
	w.POST("/widget/init", initRL.Handler(), h.Init)
	w.GET("/widget.js", h.EmbedScript)

	// Submit gets the strict bucket plus idempotency-key validation. The
	// validator runs before the limiter so a replayed key answers from the
	// stored result without spending rate budget.
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		handlers.SubmitProjectID,
		func(ctx context.Context, projectID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, projectID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	)
	submitRL := middleware.NewRateLimiter(cfg.Rate.SubmitPerWindow, cfg.Rate.Window, middleware.KeyByIP())
	w.POST("/widget/submit", idem, submitRL.Handler(), h.Submit)
}

// registerDashboardRoutes mounts the authenticated dashboard API under
// cfg.APIBasePath.
func registerDashboardRoutes(
	r *gin.Engine,
	tokens middleware.TokenVerifier,
	authH *handlers.AuthHandlers,
	projectH *handlers.ProjectHandlers,
	feedbackH *handlers.FeedbackHandlers,
	userH *handlers.UserHandlers,
	billingH *handlers.BillingHandlers,
	cfg config.Config,
) {
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(dashboardCORS(cfg.CORS.AllowedOrigins))

	// One account-or-IP bucket for the whole dashboard, auth endpoints
	// included so credential stuffing hits the limiter too.
	apiRL := middleware.NewRateLimiter(cfg.Rate.APIPerWindow, cfg.Rate.Window, middleware.KeyByAccountOrIP())
	api.Use(apiRL.Handler())

	// Session endpoints (no token yet)
	api.POST("/auth/signup", authH.Signup)
	api.POST("/auth/signin", authH.Signin)
	api.POST("/auth/signout", authH.Signout)

	authed := api.Group("")
	authed.Use(middleware.RequireAuth(tokens))
	{
		// Projects
		authed.POST("/projects", projectH.CreateProject)
		authed.GET("/projects", projectH.ListProjects)
		authed.GET("/projects/:id", projectH.GetProject)
		authed.PATCH("/projects/:id", projectH.UpdateProject)
		authed.DELETE("/projects/:id", projectH.DeleteProject)
		authed.GET("/projects/:id/stats", projectH.ProjectStats)
		authed.POST("/projects/:id/regenerate-key", projectH.RegenerateKey)
		authed.GET("/projects/:id/feedback", feedbackH.ListProjectFeedback)

		// Feedback inbox
		authed.GET("/feedback", feedbackH.ListFeedback)
		authed.GET("/feedback/:id", feedbackH.GetFeedback)
		authed.PATCH("/feedback/:id", feedbackH.UpdateFeedback)
		authed.DELETE("/feedback/:id", feedbackH.DeleteFeedback)
		authed.GET("/feedback/:id/replies", feedbackH.ListReplies)
		authed.POST("/feedback/:id/replies", feedbackH.CreateReply)

		// Account
		authed.GET("/user/profile", userH.GetProfile)
		authed.PATCH("/user/profile", userH.UpdateProfile)
		authed.PUT("/user/password", userH.ChangePassword)
		authed.GET("/user/onboarding", userH.GetOnboarding)
		authed.POST("/user/onboarding", userH.AdvanceOnboarding)

		// Billing
		authed.GET("/billing/plans", billingH.ListPlans)
		authed.GET("/billing/subscription", billingH.GetSubscription)
	}
}

// dashboardCORS builds the CORS posture for the dashboard API. With no
// configured origins it allows all, which suits local development and tests.
func dashboardCORS(allowedOrigins []string) gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		base.AllowAllOrigins = true
	} else {
		base.AllowOrigins = allowedOrigins
	}
	return cors.New(base)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
