package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Karan-0412/nabha/internal/handler/admin"
	"github.com/Karan-0412/nabha/internal/handler/appointment"
	"github.com/Karan-0412/nabha/internal/handler/assistant"
	"github.com/Karan-0412/nabha/internal/handler/availability"
	"github.com/Karan-0412/nabha/internal/handler/call"
	"github.com/Karan-0412/nabha/internal/handler/events"
	"github.com/Karan-0412/nabha/internal/handler/health"
	"github.com/Karan-0412/nabha/internal/handler/notification"
	"github.com/Karan-0412/nabha/internal/handler/prometheus"
	"github.com/Karan-0412/nabha/internal/handler/room"
	"github.com/Karan-0412/nabha/internal/middleware"
)

const eventsPath = "/api/v1/events"

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers groups everything the API mounts. Admin and Events may be nil.
type Handlers struct {
	Appointment  *appointment.Handler
	Availability *availability.Handler
	Call         *call.Handler
	Notification *notification.Handler
	Room         *room.Handler
	Assistant    *assistant.Handler
	Events       *events.Handler
	Admin        *admin.Handler
	Health       *health.Handler
	Metrics      *prometheus.Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	MaxImageBytes    int64
	CORSConfig       middleware.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	handlers Handlers
}

func NewRouter(handlers Handlers, config RouterConfig) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	r := &Router{engine: engine, handlers: handlers}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
	)
	if handlers.Metrics != nil {
		engine.Use(handlers.Metrics.Middleware())
	}
	engine.Use(
		middleware.CORS(config.CORSConfig),
		middleware.Timeout(middleware.TimeoutConfig{
			Duration:  config.RequestTimeout,
			SkipPaths: []string{eventsPath},
		}),
	)

	sizes := middleware.DefaultSizeLimitConfig()
	if config.MaxBodyBytes > 0 {
		sizes.MaxBodySize = config.MaxBodyBytes
	}
	if config.MaxImageBytes > 0 {
		sizes.LargeBodySize = config.MaxImageBytes
	}
	sizes.LargePaths = []string{"/api/v1/assistant/image"}
	engine.Use(middleware.SizeLimit(sizes))

	if config.RateLimitEnabled {
		rl := middleware.DefaultRateLimiterConfig()
		if config.RateLimit > 0 {
			rl.Rate = config.RateLimit
		}
		if config.RateBurst > 0 {
			rl.Burst = config.RateBurst
		}
		engine.Use(middleware.NewRateLimiter(rl).RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	h := r.handlers

	if h.Health != nil {
		h.Health.RegisterRoutes(r.engine)
	}
	if h.Metrics != nil {
		r.engine.GET("/metrics", h.Metrics.Handler())
	}
	if h.Assistant != nil {
		h.Assistant.RegisterRelay(r.engine)
	}

	api := r.engine.Group("/api/v1")
	api.Use(middleware.Identity())

	mount := func(present bool, handler Handler) {
		if present {
			handler.RegisterRoutes(api)
		}
	}
	mount(h.Appointment != nil, h.Appointment)
	mount(h.Availability != nil, h.Availability)
	mount(h.Call != nil, h.Call)
	mount(h.Notification != nil, h.Notification)
	mount(h.Room != nil, h.Room)
	mount(h.Assistant != nil, h.Assistant)
	mount(h.Events != nil, h.Events)
	mount(h.Admin != nil, h.Admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
