package router

import (
	"github.com/erp/accounting/internal/infrastructure/logger"
	"github.com/erp/accounting/internal/interfaces/http/handler"
	"github.com/erp/accounting/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

// Handlers holds every HTTP handler of the service
type Handlers struct {
	Accounting  *handler.AccountingHandler
	Payables    *handler.ObligationHandler
	Receivables *handler.ObligationHandler
	Outbox      *handler.OutboxHandler
	System      *handler.SystemHandler
}

// EngineOptions configures the middleware chain
type EngineOptions struct {
	Logger       *zap.Logger
	Tracing      middleware.TracingConfig
	CORS         middleware.CORSConfig
	Security     middleware.SecurityConfig
	RateLimiter  *limiter.Limiter // nil disables rate limiting
	MaxBodyBytes int64
}

// NewEngine builds the gin engine with middleware and all routes
func NewEngine(opts EngineOptions, h Handlers) *gin.Engine {
	engine := gin.New()
	engine.Use(
		logger.RequestID(),
		middleware.TracingWithConfig(opts.Tracing),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(opts.Logger),
		logger.Recovery(opts.Logger),
		middleware.CORS(opts.CORS),
		middleware.Secure(opts.Security),
	)
	if opts.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodyBytes))
	}

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	rateLimited := func(g *DomainGroup) *DomainGroup {
		if opts.RateLimiter != nil {
			g.Use(middleware.RateLimit(opts.RateLimiter, opts.Logger))
		}
		return g
	}

	if h.Accounting != nil {
		accounting := rateLimited(NewDomainGroup("accounting", "/accounting"))
		accounting.POST("/events", h.Accounting.ReceiveEvent)
		accounting.GET("/entries", h.Accounting.ListEntries)
		accounting.GET("/entries/:id", h.Accounting.GetEntry)
		accounting.GET("/trial-balance", h.Accounting.GetTrialBalance)
		r.Register(accounting)
	}

	finance := rateLimited(NewDomainGroup("finance", "/finance"))
	if h.Payables != nil {
		obligationRoutes(finance.Group("payables", "/payables"), h.Payables)
	}
	if h.Receivables != nil {
		obligationRoutes(finance.Group("receivables", "/receivables"), h.Receivables)
	}
	r.Register(finance)

	system := NewDomainGroup("system", "/system")
	if h.System != nil {
		system.GET("/info", h.System.GetSystemInfo)
	}
	if h.Outbox != nil {
		outbox := system.Group("outbox", "/outbox")
		outbox.GET("/stats", h.Outbox.GetStats)
		outbox.GET("/dead", h.Outbox.GetDeadLetterEntries)
		outbox.POST("/dead/retry-all", h.Outbox.RetryAllDeadEntries)
		outbox.GET("/:id", h.Outbox.GetEntry)
		outbox.POST("/:id/retry", h.Outbox.RetryDeadEntry)
	}
	r.Register(system)

	r.Setup()
	return engine
}

func obligationRoutes(g *DomainGroup, h *handler.ObligationHandler) {
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/payments", h.RegisterPayment)
	g.POST("/:id/payments/:payment_id/confirm", h.ConfirmPayment)
	g.POST("/:id/payments/:payment_id/cancel", h.CancelPayment)
	g.POST("/:id/cancel", h.Cancel)
}
