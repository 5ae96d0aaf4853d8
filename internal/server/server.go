// Package server assembles services, handlers and middleware into the HTTP
// application.
package server

import (
	"net/http"

	"github.com/dimitrije/atlas-api/internal/cache"
	"github.com/dimitrije/atlas-api/internal/config"
	"github.com/dimitrije/atlas-api/internal/database"
	"github.com/dimitrije/atlas-api/internal/handlers"
	"github.com/dimitrije/atlas-api/internal/metrics"
	appmw "github.com/dimitrije/atlas-api/internal/middleware"
	"github.com/dimitrije/atlas-api/internal/rbac"
	"github.com/dimitrije/atlas-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/redis/go-redis/v9"
)

// Deps are the process-wide resources the application is built on. Redis and
// Xero are optional.
type Deps struct {
	DB      *database.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics
	XeroAPI services.XeroAPI
}

type App struct {
	// Handler serves /metrics and the API, wrapped with request metrics.
	Handler http.Handler

	Sessions *services.SessionService
	Xero     *services.XeroService
}

func New(cfg *config.Config, deps Deps) *App {
	db, m := deps.DB, deps.Metrics

	userService := services.NewUserService(db, services.NewPasswordHasher(cfg.BcryptCost), cfg.AllowedSignupCodes)
	sessionService := services.NewSessionService(db, cfg.Session.TTL, cfg.Session.RememberTTL)
	shareService := services.NewShareService(db)
	snapshotService := services.NewSnapshotService(db)
	gate := services.NewAccessGate(snapshotService, rbac.NewResolver(shareService))
	stateService := services.NewStateService(db, snapshotService)
	ledgerService := services.NewLedgerService(db)
	xeroService := services.NewXeroService(db, deps.XeroAPI, m)

	authHandler := handlers.NewAuthHandler(cfg.Session, userService, sessionService, m)
	userHandler := handlers.NewUserHandler(userService)
	snapshotHandler := handlers.NewSnapshotHandler(snapshotService, shareService, gate)
	stateHandler := handlers.NewStateHandler(stateService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	xeroHandler := handlers.NewXeroHandler(xeroService)

	probes := map[string]handlers.Pinger{"database": db}
	if deps.Redis != nil {
		probes["redis"] = cache.Probe{Client: deps.Redis}
	}
	healthHandler := handlers.NewHealthHandler(probes)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", cfg.Session.CSRFHeader},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())
	app.Use(appmw.RequestLogger())

	api := app.Group("/api")

	api.Get("/health", healthHandler.Live)
	api.Get("/health/ready", healthHandler.Ready)

	// Xero redirects here without our cookies; the state names the user.
	api.Get("/xero/callback", xeroHandler.Callback)

	auth := api.Group("/auth")

	limited := auth.Group("")
	limited.Use(appmw.RateLimit(cfg.RateLimit, deps.Redis))
	limited.Post("/register", authHandler.Register)
	limited.Post("/login", authHandler.Login)

	// logout works with a stale session but still needs the CSRF pair
	csrfOnly := auth.Group("")
	csrfOnly.Use(appmw.CSRF(cfg.Session, m))
	csrfOnly.Post("/logout", authHandler.Logout)

	protected := api.Group("")
	protected.Use(appmw.CSRF(cfg.Session, m))
	protected.Use(appmw.Session(sessionService, cfg.Session.CookieName, m))

	protected.Get("/auth/me", authHandler.Me)

	admins := protected.Group("/users")
	admins.Use(appmw.RequireGlobalRole(rbac.RoleAdmin, "Admin access required"))
	admins.Get("", userHandler.List)
	admins.Post("", userHandler.Create)

	superAdmins := protected.Group("/users")
	superAdmins.Use(appmw.RequireGlobalRole(rbac.RoleSuperAdmin, "Super admin access required"))
	superAdmins.Patch("/:id", userHandler.UpdateRole)
	superAdmins.Delete("/:id", userHandler.Delete)

	protected.Get("/state", stateHandler.Get)
	protected.Put("/state/template", stateHandler.SaveTemplate)
	protected.Put("/state/report", stateHandler.SaveReport)
	protected.Put("/state/settings", stateHandler.SaveSettings)
	protected.Post("/state/imports", stateHandler.CreateImport)

	protected.Get("/snapshots", snapshotHandler.List)
	protected.Post("/snapshots", snapshotHandler.Create)
	protected.Get("/snapshots/:id", snapshotHandler.Get)
	protected.Patch("/snapshots/:id", snapshotHandler.Update)
	protected.Delete("/snapshots/:id", snapshotHandler.Delete)
	protected.Post("/snapshots/:id/duplicate", snapshotHandler.Duplicate)
	protected.Get("/snapshots/:id/shares", snapshotHandler.ListShares)
	protected.Post("/snapshots/:id/shares", snapshotHandler.CreateShare)
	protected.Patch("/snapshots/:id/shares/:shareId", snapshotHandler.UpdateShare)
	protected.Delete("/snapshots/:id/shares/:shareId", snapshotHandler.DeleteShare)

	protected.Get("/ledger/overrides", ledgerHandler.ListOverrides)
	protected.Put("/ledger/overrides", ledgerHandler.UpsertOverride)
	protected.Delete("/ledger/overrides/:id", ledgerHandler.DeleteOverride)
	protected.Get("/ledger/doctor-rules", ledgerHandler.ListDoctorRules)
	protected.Put("/ledger/doctor-rules", ledgerHandler.UpsertDoctorRule)
	protected.Delete("/ledger/doctor-rules/:contactId", ledgerHandler.DeleteDoctorRule)
	protected.Get("/ledger/preferences/:key", ledgerHandler.GetPreference)
	protected.Put("/ledger/preferences/:key", ledgerHandler.SetPreference)

	protected.Get("/xero/status", xeroHandler.Status)
	protected.Get("/xero/authorize", xeroHandler.Authorize)
	protected.Get("/xero/tenants", xeroHandler.Tenants)
	protected.Post("/xero/tenant", xeroHandler.SetTenant)
	protected.Post("/xero/sync", xeroHandler.Sync)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", app)

	return &App{
		Handler:  m.Middleware(mux),
		Sessions: sessionService,
		Xero:     xeroService,
	}
}
