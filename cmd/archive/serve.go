package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gogotex/archive/internal/document/handler"
	"github.com/gogotex/archive/pkg/logger"
	"github.com/gogotex/archive/pkg/metrics"
	"github.com/gogotex/archive/pkg/middleware"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics.RegisterCollectors(reg)

			if a.cfg.Server.Environment != "development" {
				gin.SetMode(gin.ReleaseMode)
			}
			r := newRouter(a, reg)
			logger.Infof("config summary: backend=%s documents=%d redis=%v rate_limit=%v", a.res.store.Mirror(), a.res.store.Len(), a.res.redis != nil, a.cfg.RateLimit.Enabled)
			addr := fmt.Sprintf("%s:%s", a.cfg.Server.Host, a.cfg.Server.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      r,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}
			return run(cmd.Context(), srv)
		},
	}
}

var startTime = time.Now()

// newRouter wires middleware, ops endpoints and the document API.
func newRouter(a *app, reg *prometheus.Registry) *gin.Engine {
	cfg := a.cfg
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, If-None-Match, "+middleware.UserHeader+", "+middleware.RoleHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, ETag, Location")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	r.Use(middleware.ActorMiddleware())
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && a.res.redis != nil {
			r.Use(middleware.RedisRateLimitMiddleware(a.res.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: every remote dependency in use must answer
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{"store": a.res.store != nil}
		for name, err := range a.res.Ping(ctx) {
			deps[name] = err == nil
			if err != nil {
				logger.Warnf("readiness: %s: %v", name, err)
				ready = false
			}
		}
		body := gin.H{"deps": deps, "backend": a.res.store.Mirror(), "documents": a.res.store.Len(), "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handler.RegisterSwagger(r)
	handler.NewDocumentHandler(a.svc, handler.WithLoanDays(cfg.Archive.LoanDays)).Register(r)
	return r
}

// run serves until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting archive service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
