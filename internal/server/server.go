package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rankforge/rankforge/internal/config"
	creditdomain "github.com/rankforge/rankforge/internal/credit/domain"
	gatedomain "github.com/rankforge/rankforge/internal/gate/domain"
	paymentdomain "github.com/rankforge/rankforge/internal/payment/domain"
	"github.com/rankforge/rankforge/internal/providers/llm"
	"github.com/rankforge/rankforge/internal/ratelimit"
	usagedomain "github.com/rankforge/rankforge/internal/usage/domain"
	userdomain "github.com/rankforge/rankforge/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine()
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
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
	usersvc    userdomain.Service
	creditsvc  creditdomain.Ledger
	purchases  creditdomain.Purchases
	gatesvc    gatedomain.Service
	paymentsvc paymentdomain.Service
	usagesvc   usagedomain.Reader
	llmsvc     llm.Provider
	limiter    *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Usersvc    userdomain.Service
	Creditsvc  creditdomain.Ledger
	Purchases  creditdomain.Purchases
	Gatesvc    gatedomain.Service
	Paymentsvc paymentdomain.Service
	Usagesvc   usagedomain.Reader
	LLMsvc     llm.Provider       `optional:"true"`
	Limiter    *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http"),
		usersvc:    p.Usersvc,
		creditsvc:  p.Creditsvc,
		purchases:  p.Purchases,
		gatesvc:    p.Gatesvc,
		paymentsvc: p.Paymentsvc,
		usagesvc:   p.Usagesvc,
		llmsvc:     p.LLMsvc,
		limiter:    p.Limiter,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks")
	webhooks.POST("/payment/:provider", s.HandlePaymentWebhook)
	webhooks.POST("/identity", s.HandleIdentityWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")
	api.Use(s.AuthMiddleware())
	api.GET("/credits/balance", s.HandleCreditBalance)
	api.GET("/usage", s.HandleUsageHistory)
	api.POST("/checkout", s.HandleCheckout)
	api.POST("/tools/:tool", s.HandleToolInvocation)
}
