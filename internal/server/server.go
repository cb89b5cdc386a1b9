package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	"github.com/scribehq/scribe/internal/clock"
	"github.com/scribehq/scribe/internal/config"
	entitlementdomain "github.com/scribehq/scribe/internal/entitlement/domain"
	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
	"github.com/scribehq/scribe/internal/observability"
	obslogger "github.com/scribehq/scribe/internal/observability/logger"
	obstracing "github.com/scribehq/scribe/internal/observability/tracing"
	plandomain "github.com/scribehq/scribe/internal/plan/domain"
	"github.com/scribehq/scribe/internal/push"
	subscriptiondomain "github.com/scribehq/scribe/internal/subscription/domain"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.Engine(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	clock      clock.Clock
	genSvc     generationdomain.Service
	usageSvc   usagedomain.Service
	subSvc     subscriptiondomain.Service
	planSvc    plandomain.Service
	catalogSvc catalogdomain.Service
	resolver   entitlementdomain.Resolver
	hub        *push.Hub
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	GenSvc     generationdomain.Service
	UsageSvc   usagedomain.Service
	SubSvc     subscriptiondomain.Service
	PlanSvc    plandomain.Service
	CatalogSvc catalogdomain.Service
	Resolver   entitlementdomain.Resolver
	Hub        *push.Hub `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		clock:      p.Clock,
		genSvc:     p.GenSvc,
		usageSvc:   p.UsageSvc,
		subSvc:     p.SubSvc,
		planSvc:    p.PlanSvc,
		catalogSvc: p.CatalogSvc,
		resolver:   p.Resolver,
		hub:        p.Hub,
	}

	svc.registerAPIRoutes()
	svc.registerPushRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/api/v1")

	v1.GET("/plans", s.ListPlans)
	v1.GET("/services", s.ListServices)
	v1.GET("/text/options", s.GetOptions)

	text := v1.Group("/text", s.AuthRequired())
	{
		text.POST("/generate", s.GenerateText)
		text.POST("/generate-stream", s.GenerateTextStream)
		text.GET("/history", s.ListHistory)
		text.GET("/usage", s.GetUsage)
	}

	subs := v1.Group("/subscriptions", s.AuthRequired())
	{
		subs.GET("", s.GetSubscriptionStatus)
		subs.POST("/trial", s.StartTrial)
		subs.POST("/upgrade", s.UpgradeSubscription)
		subs.POST("/cancel", s.CancelSubscription)
	}
}

func (s *Server) registerPushRoutes() {
	s.engine.GET("/ws", s.AuthRequired(), s.HandleWebSocket)
}
