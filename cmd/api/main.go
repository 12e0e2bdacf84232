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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Karan-0412/nabha/config"
	"github.com/Karan-0412/nabha/internal/app"
	adminHandler "github.com/Karan-0412/nabha/internal/handler/admin"
	appointmentHandler "github.com/Karan-0412/nabha/internal/handler/appointment"
	assistantHandler "github.com/Karan-0412/nabha/internal/handler/assistant"
	availabilityHandler "github.com/Karan-0412/nabha/internal/handler/availability"
	callHandler "github.com/Karan-0412/nabha/internal/handler/call"
	"github.com/Karan-0412/nabha/internal/handler/events"
	"github.com/Karan-0412/nabha/internal/handler/health"
	notificationHandler "github.com/Karan-0412/nabha/internal/handler/notification"
	promHandler "github.com/Karan-0412/nabha/internal/handler/prometheus"
	roomHandler "github.com/Karan-0412/nabha/internal/handler/room"
	"github.com/Karan-0412/nabha/internal/router"
	"github.com/Karan-0412/nabha/internal/service/assistant"
	"github.com/Karan-0412/nabha/internal/worker"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/metrics"
)

func main() {
	cfg, err := config.Load(os.Getenv("TELEMED_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(cfg.ToLoggerConfig())
	log.Logger = *appLog.Zerolog()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("telemed", reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := app.OpenStore(ctx, cfg, app.Source("api"), appLog, m)
	if err != nil {
		appLog.Fatal(err, "failed to open document store")
	}
	defer st.Close()

	// seed or migrate before serving
	if _, err := st.ReadDB(ctx); err != nil {
		appLog.Fatal(err, "failed to load database document")
	}

	svcs := app.NewServices(st, cfg, appLog, m)
	ai := assistant.NewClient(cfg.Assistant.ToAssistantConfig(), appLog, m)

	hub := events.NewHub(m)
	stopFollow, err := hub.Follow(st)
	if err != nil {
		appLog.Fatal(err, "failed to subscribe to change signals")
	}
	defer stopFollow()

	handlers := router.Handlers{
		Appointment:  appointmentHandler.NewHandler(svcs.Appointment),
		Availability: availabilityHandler.NewHandler(svcs.Availability, st.Now),
		Call:         callHandler.NewHandler(svcs.Call),
		Notification: notificationHandler.NewHandler(svcs.Notification),
		Room:         roomHandler.NewHandler(svcs.Message),
		Assistant:    assistantHandler.NewHandler(ai, svcs.Message),
		Events:       events.NewHandler(hub, originChecker(cfg.CORS.AllowedOrigins)),
		Health:       health.NewHandler(st),
		Metrics:      promHandler.New(m, reg),
	}
	if cfg.Server.AdminEnabled {
		handlers.Admin = adminHandler.NewHandler(st)
	}

	r := router.NewRouter(handlers, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		RequestTimeout:   cfg.Server.RequestTimeout,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		MaxImageBytes:    cfg.Server.MaxImageBytes,
		CORSConfig:       cfg.CORS.ToCORSConfig(),
	})
	r.Setup()

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

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		appLog.Info("server listening", "addr", srv.Addr, "storage", cfg.Storage.Driver, "broker", cfg.Broker.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down server...")

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(err, "server forced to shutdown")
	}

	appLog.Info("server exited properly")
}

// originChecker mirrors the CORS origins for websocket upgrades.
func originChecker(allowed []string) func(string) bool {
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(origin string) bool {
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

