package router

import (
	"time"

	"tillpos/internal/config"
	"tillpos/internal/guard"
	"tillpos/internal/handler"
	"tillpos/internal/infra"
	"tillpos/internal/middleware"
	"tillpos/internal/repository"
	"tillpos/internal/service"
	"tillpos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, backofficeCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	operatorRepo := repository.NewOperatorRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	entryRepo := repository.NewEntryRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)
	inflightGuard := guard.NewRedisGuard(rdb, time.Duration(cfg.InFlightTTLSeconds)*time.Second)

	authSvc := service.NewAuthService(operatorRepo, cfg)
	registerSvc := service.NewRegisterService(registerRepo, entryRepo, dispatcher, cfg.Currency, cfg.AlertsEmail)
	reconcileSvc := service.NewReconcileService(registerRepo, entryRepo)
	entrySvc := service.NewEntryService(registerRepo, entryRepo, inflightGuard)
	cancelSvc := service.NewCancelService(registerRepo, entryRepo, operatorRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	registerH := handler.NewRegisterHandler(registerSvc, reconcileSvc)
	entryH := handler.NewEntryHandler(entrySvc, cancelSvc)
	operatorsH := handler.NewOperatorsHandler(authSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, backofficeCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	anyRole := middleware.RequireRole("cashier", "supervisor", "admin")
	supervisorUp := middleware.RequireRole("supervisor", "admin")

	v1 := r.Group("/v1", jwtMW)
	{
		reg := v1.Group("/register")
		{
			reg.POST("/open", anyRole, registerH.Open)
			reg.POST("/close", anyRole, registerH.Close)
			reg.GET("/current", anyRole, registerH.Current)
			reg.GET("/balance", anyRole, registerH.Balance)
			reg.GET("/history", supervisorUp, registerH.History)
			reg.GET("/:id/entries", anyRole, registerH.Entries)
			reg.GET("/:id/movements", anyRole, registerH.Movements)
			// Post-close corrections are supervisor territory.
			reg.PATCH("/:id", supervisorUp, registerH.Amend)
			reg.POST("/:id/entries/retroactive", supervisorUp, registerH.Retroactive)
		}

		entries := v1.Group("/entries", anyRole)
		{
			entries.POST("/sale", entryH.Sale)
			entries.POST("/deposit", entryH.Deposit)
			entries.POST("/withdrawal", entryH.Withdrawal)
			entries.POST("/payment", entryH.Payment)
			// The supervisor authorization travels in the body and is verified
			// against the operators table, so cashiers may initiate.
			entries.POST("/:id/cancel", entryH.Cancel)
		}

		reports := v1.Group("/reports", supervisorUp)
		{
			reports.GET("/day/balance", registerH.DayBalance)
			reports.GET("/day/movements", registerH.DayMovements)
		}

		operators := v1.Group("/operators", middleware.RequireRole("admin"))
		{
			operators.POST("", operatorsH.Create)
			operators.GET("", operatorsH.List)
			operators.PUT("/:id", operatorsH.Update)
			operators.DELETE("/:id", operatorsH.Deactivate)
			operators.PATCH("/:id/reactivate", operatorsH.Reactivate)
		}
	}

	return r
}
