package main

import (
	"time"

	"emergency-triage-service/config"
	"emergency-triage-service/database"
	"emergency-triage-service/dispatch"
	"emergency-triage-service/handlers"
	"emergency-triage-service/metrics"
	"emergency-triage-service/middleware"
	"emergency-triage-service/phrasing"
	"emergency-triage-service/session"
	"emergency-triage-service/triage"
	"emergency-triage-service/version"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EndPointHealth       = "/health"
	EndPointMetrics      = "/metrics"
	EndPointTurn         = "/turn"
	EndPointSession      = "/session/:caller_id"
	EndPointSessionReset = "/session/:caller_id/reset"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.Info("Starting the emergency triage service...")

	metrics.Register()

	// Session store and triage engine
	store := session.NewMemoryStore()
	engine := triage.NewEngine(store)

	// Optional reply phrasing; the dispatch verdict never depends on it
	if cfg.OpenAIAPIKey != "" {
		engine.Phrasing = phrasing.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.PhrasingTimeout)
		log.Infof("Reply phrasing enabled (model %s)", cfg.OpenAIModel)
	}

	// Optional incident store
	if cfg.DBEnabled {
		db, err := database.NewDatabase(cfg)
		if err != nil {
			log.Errorf("Failed to connect incident store, continuing without persistence: %v", err)
		} else {
			defer db.Close()
			if err := db.CreateIncidentsTable(); err != nil {
				log.Errorf("Failed to create incidents table: %v", err)
			} else {
				engine.Incidents = db
			}
		}
	}

	// Optional dispatch event publisher
	if cfg.RabbitMQURL != "" {
		publisher, err := dispatch.NewPublisher(cfg.RabbitMQURL, cfg.DispatchExchange, cfg.DispatchRoutingKey)
		if err != nil {
			log.Errorf("Failed to initialize dispatch publisher, continuing without it: %v", err)
		} else {
			defer publisher.Close()
			engine.Publisher = publisher
		}
	}

	// Periodic idle-session sweep
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			engine.CleanupIdleSessions(cfg.SessionIdleTimeout)
		}
	}()

	triageHandler := handlers.NewTriageHandler(engine)

	// Setup router
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.AllowedOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint (no auth required)
	router.GET(EndPointHealth, func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "emergency-triage-service",
			"version": version.Get("emergency-triage-service"),
		})
	})

	// Prometheus metrics
	router.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))

	// Rate-limited triage endpoints
	rateLimited := router.Group("/")
	rateLimited.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute, time.Minute))
	{
		rateLimited.POST(EndPointTurn, triageHandler.ProcessTurn)
		rateLimited.GET(EndPointSession, triageHandler.GetSession)
		rateLimited.POST(EndPointSessionReset, triageHandler.ResetSession)
	}

	log.Infof("Emergency triage service listening on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
