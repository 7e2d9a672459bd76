package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/dukasoft/duka-pos/internal/config"
	"github.com/dukasoft/duka-pos/internal/modules/auth"
	"github.com/dukasoft/duka-pos/internal/modules/cart"
	"github.com/dukasoft/duka-pos/internal/modules/catalog"
	"github.com/dukasoft/duka-pos/internal/modules/sales"
	"github.com/dukasoft/duka-pos/internal/obs"
	"github.com/dukasoft/duka-pos/internal/qr"
	"github.com/dukasoft/duka-pos/internal/realtime"
)

func main() {
	godotenv.Load()
	obs.InitLogger()
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		obs.Logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		obs.Logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		obs.Logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		obs.Logger.Error("ping database", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Realtime ────────────────────────────────────────────
	hub := realtime.NewHub()
	listener, err := realtime.NewListener(cfg.DatabaseURL, hub, cfg.ListenMinInterval, cfg.ListenMaxInterval)
	if err != nil {
		obs.Logger.Error("start pq listener", "error", err)
		os.Exit(1)
	}
	go listener.Run(ctx)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Session manager ─────────────────────────────────────
	authRepo := auth.NewPostgresRepository(db)
	authService := auth.NewService(authRepo, []byte(cfg.JWTSecret), cfg.JWTTTL)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Catalog store ───────────────────────────────────────
	catalogRepo := catalog.NewPostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo, hub)
	mirror := catalog.NewMirror(catalogRepo, hub)
	go func() {
		if err := mirror.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			obs.Logger.Error("catalog mirror stopped", "error", err)
		}
	}()

	// ── Sales ledger ────────────────────────────────────────
	salesRepo := sales.NewPostgresRepository(db)
	ledger := sales.NewLedger(salesRepo, hub)
	go func() {
		if err := ledger.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			obs.Logger.Error("sales ledger stopped", "error", err)
		}
	}()
	salesService := sales.NewService(salesRepo, ledger, mirror)

	// ── Cart & sale engine ──────────────────────────────────
	checkoutRepo := cart.NewPostgresRepository(db)
	cartService := cart.NewService(cart.NewStore(), mirror, checkoutRepo, hub)

	// Every data route requires an identity; without one the request is
	// blocked at the middleware, never silently degraded.
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireIdentity(authService))
		catalog.NewHandler(catalogService, hub).RegisterRoutes(r)
		cart.NewHandler(cartService).RegisterRoutes(r)
		encoder := qr.Encoder{BaseURL: cfg.QREncodeBaseURL, SizePx: cfg.QRSizePx}
		sales.NewHandler(salesService, hub, encoder).RegisterRoutes(r)
	})

	// ── Serve ───────────────────────────────────────────────
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	obs.Logger.Info("duka-pos API server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		obs.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
