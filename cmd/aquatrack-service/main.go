package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/aquatrack-service/internal/api"
	"github.com/hypernova-labs/aquatrack-service/internal/auth"
	"github.com/hypernova-labs/aquatrack-service/internal/config"
	"github.com/hypernova-labs/aquatrack-service/internal/database"
	"github.com/hypernova-labs/aquatrack-service/internal/email"
	"github.com/hypernova-labs/aquatrack-service/internal/events"
	"github.com/hypernova-labs/aquatrack-service/internal/ledger"
	"github.com/hypernova-labs/aquatrack-service/internal/services"
	"github.com/hypernova-labs/aquatrack-service/internal/workflows"
	"github.com/sirupsen/logrus"
)

// appStore reúne todo lo que la aplicación necesita del almacenamiento
type appStore interface {
	ledger.Store
	services.CustomerStore
	services.ReportStore
	services.UserStore
}

// healthCheck verifica una dependencia externa
type healthCheck func(ctx context.Context) error

func main() {
	// Cargar configuración
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// Configurar logging
	logger := setupLogger(cfg)
	logger.Info("Starting AquaTrack Service...")

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	// Configurar modo de Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]healthCheck{}

	// Almacenamiento
	var store appStore
	switch cfg.Ledger.StoreDriver {
	case "memory":
		if cfg.IsProduction() {
			logger.Fatal("STORE_DRIVER=memory is not allowed in production")
		}
		logger.Warn("Using in-memory store, data will be lost on restart")
		store = database.NewMemoryStore()
	case "postgres":
		db, err := database.Connect(cfg)
		if err != nil {
			logger.Fatalf("Error connecting to database: %v", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.EnsureSchema(ctx)
		cancel()
		if err != nil {
			logger.Fatalf("Error ensuring database schema: %v", err)
		}

		db.LogStats(logger)
		checks["database"] = db.HealthCheck
		store = database.NewPostgresStore(db, logger)
	default:
		logger.Fatalf("Unknown STORE_DRIVER %q (expected postgres or memory)", cfg.Ledger.StoreDriver)
	}

	// Caché de roles en Redis
	var roleCache auth.RoleCache
	if cfg.Redis.Enabled {
		redis, err := database.ConnectRedis(cfg)
		if err != nil {
			logger.Warnf("Error connecting to Redis: %v", err)
		} else {
			defer redis.Close()
			checks["redis"] = redis.HealthCheck
			roleCache = database.NewRoleCache(redis, cfg.Auth.RoleCacheTTL, logger)
			logger.Info("Role cache enabled")
		}
	}
	resolver := auth.NewRoleResolver(store, roleCache, logger)

	// Storage de estados de cuenta
	var uploader services.StatementUploader
	if cfg.Storage.Endpoint != "" && cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		supabaseClient, err := database.NewSupabaseClient(context.Background(), &cfg.Storage, logger)
		if err != nil {
			logger.Warnf("Error initializing Supabase client: %v", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := supabaseClient.HealthCheck(ctx); err != nil {
				logger.Warnf("Supabase health check failed: %v", err)
			} else {
				logger.Info("Supabase storage connection healthy")
			}
			cancel()
			uploader = supabaseClient
		}
	} else {
		logger.Warn("Supabase storage credentials not provided, statements will not be archived")
	}

	// Inicializar servicio de Resend
	var resendService *email.ResendService
	if cfg.Email.ResendAPIKey != "" {
		resendService = email.NewResendService(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.NotifyEmail, logger)
		logger.Info("Resend service initialized successfully")
	} else {
		logger.Warn("Resend API key not provided, email notifications will not be available")
	}

	// Publicadores de eventos del ledger
	publishers, closeEvents := setupEvents(cfg, store, resendService, logger)
	defer closeEvents()

	inngestClient := setupInngest(cfg, store, resendService, logger)
	if inngestClient != nil {
		publishers = append(publishers, inngestClient)
	}
	fanout := events.NewFanout(publishers...)
	logger.Infof("Ledger events published to %d destinations", fanout.Len())

	orderLedger := ledger.New(
		store,
		auth.ContextRoleProvider{},
		ledger.NewStaticPriceBook(cfg.Pricing.Bottle, cfg.Pricing.Jug),
		fanout,
		ledger.Options{ContainerTracking: containerTracking(cfg, logger)},
		logger,
	)

	// Inicializar servicios
	customerService := services.NewCustomerService(store, logger)
	userService := services.NewUserService(store, resolver, logger)
	reportService := services.NewReportService(store, time.Local, logger)
	statementService := services.NewStatementService(orderLedger, store, services.NewDocumentGenerator(logger), uploader, logger)

	// Inicializar API
	apiHandler := api.NewAPI(
		orderLedger,
		customerService,
		userService,
		reportService,
		statementService,
		logger,
	)

	// Configurar router
	router := setupRouter(apiHandler, auth.Middleware(cfg.Auth.JWTSecret, resolver, logger), inngestClient, checks, cfg)

	// Crear servidor HTTP
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Canal para señales de terminación
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Iniciar servidor en goroutine
	go func() {
		logger.Infof("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	// Esperar señal de terminación
	<-quit
	logger.Info("Shutting down server...")

	// Contexto con timeout para shutdown graceful
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupLogger configura el logger según la configuración
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	// Configurar nivel de log
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Configurar formato
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// containerTracking interpreta CONTAINER_TRACKING; un valor desconocido usa auto
func containerTracking(cfg *config.Config, logger *logrus.Logger) ledger.ContainerTracking {
	switch mode := ledger.ContainerTracking(cfg.Ledger.ContainerTracking); mode {
	case ledger.ContainerTrackingAuto, ledger.ContainerTrackingExplicit:
		return mode
	default:
		logger.Warnf("Unknown CONTAINER_TRACKING %q, using auto", cfg.Ledger.ContainerTracking)
		return ledger.ContainerTrackingAuto
	}
}

// setupEvents crea los publicadores de RabbitMQ y del aviso de liquidación
func setupEvents(cfg *config.Config, store appStore, resendService *email.ResendService, logger *logrus.Logger) ([]ledger.EventPublisher, func()) {
	var publishers []ledger.EventPublisher
	cleanup := func() {}

	if cfg.RabbitMQ.URL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Warnf("Error connecting to RabbitMQ: %v", err)
		} else {
			publishers = append(publishers, rabbit)
			cleanup = func() {
				if err := rabbit.Close(); err != nil {
					logger.WithError(err).Warn("Error closing RabbitMQ connection")
				}
			}
			logger.Info("RabbitMQ publisher initialized successfully")
		}
	} else {
		logger.Warn("RABBITMQ_URL not provided, ledger events will not be broadcast")
	}

	if resendService != nil {
		publishers = append(publishers, events.NewNotifier(store, resendService, logger))
	}

	return publishers, cleanup
}

// setupInngest crea el cliente de Inngest y registra el recordatorio de entregas programadas
func setupInngest(cfg *config.Config, store appStore, resendService *email.ResendService, logger *logrus.Logger) *workflows.InngestClient {
	inngestClient, err := workflows.NewInngestClient(cfg, logger)
	if err != nil {
		logger.Warnf("Inngest not available: %v", err)
		return nil
	}

	if resendService != nil {
		reminders := workflows.NewReminderWorkflow(store, resendService, logger)
		if err := reminders.Register(inngestClient); err != nil {
			logger.Warnf("Error registering workflows: %v", err)
		}
	} else {
		logger.Warn("Resend not configured, delivery reminders will not be sent")
	}

	return inngestClient
}

// setupRouter configura el router principal
func setupRouter(apiHandler *api.API, authMiddleware gin.HandlerFunc, inngestClient *workflows.InngestClient, checks map[string]healthCheck, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Middleware global
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Middleware de CORS para desarrollo
	if cfg.IsDevelopment() {
		router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}

			c.Next()
		})
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		code, status := http.StatusOK, "ok"
		dependencies := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				dependencies[name] = "down"
				code, status = http.StatusServiceUnavailable, "degraded"
				continue
			}
			dependencies[name] = "up"
		}

		c.JSON(code, gin.H{
			"status":       status,
			"timestamp":    time.Now().UTC(),
			"service":      "aquatrack-service",
			"version":      "1.0.0",
			"dependencies": dependencies,
		})
	})

	// Endpoint de Inngest
	if inngestClient != nil {
		router.Any("/api/inngest", gin.WrapH(inngestClient.Handler()))
	}

	apiHandler.RegisterRoutes(router.Group("/v1"), authMiddleware)

	return router
}
