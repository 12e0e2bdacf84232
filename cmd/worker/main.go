package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/Karan-0412/nabha/config"
	"github.com/Karan-0412/nabha/internal/app"
	"github.com/Karan-0412/nabha/internal/handler/health"
	promHandler "github.com/Karan-0412/nabha/internal/handler/prometheus"
	"github.com/Karan-0412/nabha/internal/middleware"
	"github.com/Karan-0412/nabha/internal/worker"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/metrics"
)

func setupHealthCheck(port int, pinger health.Pinger, m *metrics.Metrics, reg prometheus.Gatherer, appLog *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.Recovery())

	health.NewHandler(pinger).RegisterRoutes(engine)
	engine.GET("/metrics", promHandler.New(m, reg).Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal(err, "Health check server failed")
		}
	}()
	return srv
}

func main() {
	cfg, err := config.Load(os.Getenv("TELEMED_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLog := logger.NewLogger(cfg.ToLoggerConfig())
	log.Logger = *appLog.Zerolog()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics("telemed", reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := app.OpenStore(ctx, cfg, app.Source("worker"), appLog, m)
	if err != nil {
		appLog.Fatal(err, "Failed to open document store")
	}
	defer st.Close()

	svcs := app.NewServices(st, cfg, appLog, m)

	if !cfg.Reminder.Enabled && !cfg.Simulator.Enabled {
		appLog.Warn("No agents enabled, worker will only serve health checks")
	}

	var wg sync.WaitGroup
	if cfg.Reminder.Enabled {
		reminder := worker.NewReminder(st, svcs.Notification, cfg.Reminder.ToReminderConfig(), appLog, m)
		wg.Add(1)
		go func() {
			defer wg.Done()
			reminder.Start(ctx)
		}()
	}
	if cfg.Simulator.Enabled {
		sim := worker.NewSimulator(svcs.Call, cfg.Simulator.ToSimulatorConfig(), nil, appLog, m)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.Start(ctx)
		}()
	}

	srv := setupHealthCheck(cfg.Worker.HealthPort, st, m, reg, appLog)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	appLog.Info("Shutting down...")

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(err, "Health check server forced to shutdown")
	}
}
