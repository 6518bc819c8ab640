package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eion/userops/internal/commandlog"
	"github.com/eion/userops/internal/commands"
	"github.com/eion/userops/internal/config"
	"github.com/eion/userops/internal/health"
	"github.com/eion/userops/internal/users"
)

const retentionInterval = time.Hour

// AppState holds all application services
type AppState struct {
	Logger          *zap.Logger
	Config          *config.Config
	UserStore       *users.InMemoryStore
	UserService     users.UserService
	CommandStore    commandlog.Store
	CommandRecorder *commandlog.Recorder
	Dispatcher      *commands.Dispatcher
	Recognizer      commands.Recognizer
	Health          *health.Manager
}

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envErr := godotenv.Overload()

	// Load configuration
	config.Load()

	// Initialize logger with config
	logger := initLogger()
	if envErr != nil {
		logger.Info("No .env file found, using environment variables")
	} else {
		logger.Info("Loaded .env file")
	}
	logger.Info("Configuration loaded", zap.String("source", "config.Load()"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize application state
	as, err := newAppState(ctx, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application state", zap.Error(err))
	}

	if err := as.Health.StartupCheck(ctx); err != nil {
		logger.Fatal("Startup health check failed", zap.Error(err))
	}

	// Load the bootstrap source into the store
	dataConfig := config.Data()
	bootstrapped, err := as.UserService.Bootstrap(ctx, dataConfig.CSVPath)
	if err != nil {
		logger.Fatal("Failed to load bootstrap users", zap.String("source", dataConfig.CSVPath), zap.Error(err))
	}
	if err := as.UserService.AddUsers(ctx, bootstrapped); err != nil {
		logger.Fatal("Failed to add bootstrap users", zap.Error(err))
	}
	logger.Info("Bootstrap users loaded",
		zap.String("source", dataConfig.CSVPath),
		zap.Int("count", len(bootstrapped)))

	if hours := config.CommandLog().RetentionHours; hours > 0 {
		as.CommandRecorder.StartRetention(ctx, time.Duration(hours)*time.Hour, retentionInterval)
	}

	// Create HTTP server
	router := setupRouter(as)

	addr := config.Http().Addr()
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Setup graceful shutdown
	done := setupSignalHandler(as, server, cancel, logger)

	// Start server
	logger.Info("Starting userops server", zap.String("address", addr))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	<-done
	logger.Info("Server shutdown complete")
}

// newAppState creates and initializes the application state
func newAppState(ctx context.Context, logger *zap.Logger) (*AppState, error) {
	userStore := users.NewInMemoryStore()
	userService := users.NewUserService(userStore, users.NewCSVLoader(logger), logger)

	logConfig := config.CommandLog()
	pgConfig := config.Postgres()
	if logConfig.Backend == commandlog.BackendPostgres {
		logger.Info("Command log database configuration",
			zap.String("host", pgConfig.Host),
			zap.Int("port", pgConfig.Port),
			zap.String("database", pgConfig.Database),
			zap.String("user", pgConfig.User))
	}

	commandStore, err := commandlog.NewStore(ctx, commandlog.Options{
		Backend:        logConfig.Backend,
		SQLitePath:     logConfig.SQLitePath,
		PostgresDSN:    pgConfig.DSN(),
		MaxConnections: pgConfig.MaxOpenConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open command log: %w", err)
	}
	recorder := commandlog.NewRecorder(commandStore, logger)

	aiConfig := config.OpenAI()
	cmdConfig := commands.Config{
		Provider:           aiConfig.Provider,
		APIKey:             aiConfig.APIKey,
		BaseURL:            aiConfig.BaseURL,
		ChatModel:          aiConfig.ChatModel,
		TranscriptionModel: aiConfig.TranscriptionModel,
		TimeoutSeconds:     aiConfig.TimeoutSeconds,
	}
	if cmdConfig.Provider == "openai" && cmdConfig.APIKey == "" {
		logger.Warn("OpenAI API key is not set; command understanding will fail until it is configured")
	}

	understander, err := commands.NewUnderstander(cmdConfig)
	if err != nil {
		commandStore.Close()
		return nil, fmt.Errorf("failed to create command understander: %w", err)
	}
	recognizer, err := commands.NewRecognizer(cmdConfig)
	if err != nil {
		commandStore.Close()
		return nil, fmt.Errorf("failed to create speech recognizer: %w", err)
	}

	healthManager := health.NewManager(logger)
	healthManager.AddChecker(health.NewConfigChecker(config.Get().Validate))
	healthManager.AddChecker(health.NewUserStoreChecker(userStore))
	healthManager.AddChecker(health.NewCommandLogChecker(recorder))
	healthManager.AddChecker(health.NewSourceFileChecker(config.Data().CSVPath))

	return &AppState{
		Logger:          logger,
		Config:          config.Get(),
		UserStore:       userStore,
		UserService:     userService,
		CommandStore:    commandStore,
		CommandRecorder: recorder,
		Dispatcher:      commands.NewDispatcher(understander, userService, recorder, logger),
		Recognizer:      recognizer,
		Health:          healthManager,
	}, nil
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var config zap.Config
	if logConfig.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.Level = zap.NewAtomicLevelAt(logLevel(logConfig.Level))

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

// logLevel maps a configured level name, in any case, to a zap level
func logLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func setupRouter(as *AppState) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = as.Config.Common.Http.AllowedOrigins
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.Use(RequestLoggingMiddleware(as.Logger))
	router.Use(gin.Recovery())
	router.Use(MaxBodyMiddleware(as.Config.Common.Http.MaxRequestSize))

	router.GET("/health", health.Handler(as.Health))

	// User routes keep the paths existing clients call
	users.NewUserHandlers(as.UserService, as.Logger).RegisterRoutes(router)

	api := router.Group("/api/v1")
	{
		commands.NewHandlers(as.Dispatcher, as.Recognizer, as.Logger).RegisterRoutes(api)
		commandlog.NewHandlers(as.CommandRecorder, as.Logger).RegisterRoutes(api)
	}

	return router
}

// RequestLoggingMiddleware tags each request with an ID and logs its outcome
func RequestLoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(startTime)),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("Request failed", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("Request rejected", fields...)
		default:
			logger.Info("Request handled", fields...)
		}
	}
}

// MaxBodyMiddleware caps the request body size
func MaxBodyMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func setupSignalHandler(as *AppState, server *http.Server, cancel context.CancelFunc, logger *zap.Logger) chan struct{} {
	done := make(chan struct{}, 1)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		// Create context with timeout for graceful shutdown
		ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()

		// Shutdown server
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}

		// Stop background retention before closing its store
		cancel()

		if err := as.CommandStore.Close(); err != nil {
			logger.Error("Error closing command log", zap.Error(err))
		}

		_ = logger.Sync()
		done <- struct{}{}
	}()

	return done
}
