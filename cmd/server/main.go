package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tyemirov/tcommerce/internal/authkit"
	"github.com/tyemirov/tcommerce/internal/authkitredis"
	"github.com/tyemirov/tcommerce/internal/cart"
	"github.com/tyemirov/tcommerce/internal/catalog"
	"github.com/tyemirov/tcommerce/internal/coupon"
	"github.com/tyemirov/tcommerce/internal/storage"
	"github.com/tyemirov/tcommerce/internal/web"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tcommerce",
		Short:   "E-commerce API with JWT sessions, Redis-backed refresh tokens, and a product catalog",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":4000", "HTTP listen address")
	rootCmd.Flags().String("cookie_domain", "", "Cookie domain; empty for host-only")
	rootCmd.Flags().String("access_jwt_secret", "", "HS256 signing secret for access tokens")
	rootCmd.Flags().String("refresh_jwt_secret", "", "HS256 signing secret for refresh tokens")
	rootCmd.Flags().Duration("access_ttl", 15*time.Minute, "Access token TTL")
	rootCmd.Flags().Duration("refresh_ttl", 7*24*time.Hour, "Refresh token TTL")
	rootCmd.Flags().String("database_url", "sqlite://tcommerce.db", "Database URL (postgres:// or sqlite://)")
	rootCmd.Flags().String("redis_addr", "", "Redis address for session records; empty for in-memory store")
	rootCmd.Flags().String("redis_password", "", "Redis password")
	rootCmd.Flags().Int("redis_db", 0, "Redis logical database")
	rootCmd.Flags().Bool("dev_insecure_http", false, "Allow insecure HTTP for local dev")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients (required to set SameSite=None cookies)")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")

	_ = viper.BindPFlag("listen_addr", rootCmd.Flags().Lookup("listen_addr"))
	_ = viper.BindPFlag("cookie_domain", rootCmd.Flags().Lookup("cookie_domain"))
	_ = viper.BindPFlag("access_jwt_secret", rootCmd.Flags().Lookup("access_jwt_secret"))
	_ = viper.BindPFlag("refresh_jwt_secret", rootCmd.Flags().Lookup("refresh_jwt_secret"))
	_ = viper.BindPFlag("access_ttl", rootCmd.Flags().Lookup("access_ttl"))
	_ = viper.BindPFlag("refresh_ttl", rootCmd.Flags().Lookup("refresh_ttl"))
	_ = viper.BindPFlag("database_url", rootCmd.Flags().Lookup("database_url"))
	_ = viper.BindPFlag("redis_addr", rootCmd.Flags().Lookup("redis_addr"))
	_ = viper.BindPFlag("redis_password", rootCmd.Flags().Lookup("redis_password"))
	_ = viper.BindPFlag("redis_db", rootCmd.Flags().Lookup("redis_db"))
	_ = viper.BindPFlag("dev_insecure_http", rootCmd.Flags().Lookup("dev_insecure_http"))
	_ = viper.BindPFlag("enable_cors", rootCmd.Flags().Lookup("enable_cors"))
	_ = viper.BindPFlag("cors_allowed_origins", rootCmd.Flags().Lookup("cors_allowed_origins"))

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"

	configCodeMissingAccessSecret  = "config.missing_access_jwt_secret"
	configCodeMissingRefreshSecret = "config.missing_refresh_jwt_secret"
	configCodeEqualSecrets         = "config.equal_jwt_secrets"
	configCodeInvalidAccessTTL     = "config.invalid_access_ttl"
	configCodeInvalidRefreshTTL    = "config.invalid_refresh_ttl"
	configCodeMissingDatabaseURL   = "config.missing_database_url"
	configCodeUninitializedConf    = "config.uninitialized_server_config"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadServerConfig validates viper-bound settings into a ServerConfig.
func LoadServerConfig() (authkit.ServerConfig, error) {
	accessSecret := viper.GetString("access_jwt_secret")
	if accessSecret == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingAccessSecret, "access_jwt_secret must be provided")
	}

	refreshSecret := viper.GetString("refresh_jwt_secret")
	if refreshSecret == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingRefreshSecret, "refresh_jwt_secret must be provided")
	}
	if accessSecret == refreshSecret {
		return authkit.ServerConfig{}, configError(configCodeEqualSecrets, "access and refresh secrets must differ")
	}

	accessTTL := viper.GetDuration("access_ttl")
	if accessTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidAccessTTL, "access_ttl must be greater than zero")
	}

	refreshTTL := viper.GetDuration("refresh_ttl")
	if refreshTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidRefreshTTL, "refresh_ttl must be greater than zero")
	}

	if viper.GetString("database_url") == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingDatabaseURL, "database_url must be provided")
	}

	return authkit.ServerConfig{
		AccessSigningKey:  []byte(accessSecret),
		RefreshSigningKey: []byte(refreshSecret),
		Issuer:            "tcommerce",
		CookieDomain:      viper.GetString("cookie_domain"),
		AccessCookieName:  accessCookieName,
		RefreshCookieName: refreshCookieName,
		AccessTTL:         accessTTL,
		RefreshTTL:        refreshTTL,
	}, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(authkit.ServerConfig)
	if !ok {
		return configError(configCodeUninitializedConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	listenAddr := viper.GetString("listen_addr")
	databaseURL := viper.GetString("database_url")
	redisAddr := viper.GetString("redis_addr")
	enableCORS := viper.GetBool("enable_cors")
	corsAllowedOrigins := viper.GetStringSlice("cors_allowed_origins")

	serverConfig.AllowInsecureHTTP = viper.GetBool("dev_insecure_http")
	serverConfig.SameSiteMode = http.SameSiteStrictMode
	if enableCORS {
		serverConfig.SameSiteMode = http.SameSiteNoneMode
	}

	bootCtx := context.Background()

	gormDB, driverLabel, openErr := storage.Open(databaseURL)
	if openErr != nil {
		return openErr
	}
	defer func() {
		if closeErr := storage.Close(gormDB); closeErr != nil {
			logger.Error("database close error", zap.Error(closeErr))
		}
	}()
	logger.Info("database connected", zap.String("driver", driverLabel))

	var sessionStore authkit.SessionTokenStore
	var featuredCache catalog.FeaturedCache
	if redisAddr != "" {
		redisClient, redisErr := authkitredis.Connect(bootCtx, redisAddr, viper.GetString("redis_password"), viper.GetInt("redis_db"))
		if redisErr != nil {
			return redisErr
		}
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				logger.Error("redis close error", zap.Error(closeErr))
			}
		}()
		sessionStore = authkitredis.NewSessionStore(redisClient)
		featuredCache = catalog.NewRedisFeaturedCache(redisClient, logger)
		logger.Info("using redis session store", zap.String("addr", redisAddr))
	} else {
		sessionStore = authkit.NewMemorySessionStore(nil)
		featuredCache = catalog.NoopFeaturedCache{}
		logger.Info("using in-memory session store")
	}

	clock := authkit.NewSystemClock()
	codec, codecErr := authkit.NewTokenCodec(serverConfig, clock)
	if codecErr != nil {
		return codecErr
	}

	userStore, userStoreErr := authkit.NewDatabaseUserStore(bootCtx, gormDB)
	if userStoreErr != nil {
		return userStoreErr
	}
	catalogStore, catalogErr := catalog.NewStore(bootCtx, gormDB, featuredCache, logger)
	if catalogErr != nil {
		return catalogErr
	}
	cartStore, cartErr := cart.NewStore(bootCtx, gormDB, catalogStore)
	if cartErr != nil {
		return cartErr
	}
	couponStore, couponErr := coupon.NewStore(bootCtx, gormDB)
	if couponErr != nil {
		return couponErr
	}

	metricsRecorder := authkit.NewCounterMetrics()
	sessionManager := authkit.NewSessionManager(codec, userStore, sessionStore, serverConfig.RefreshTTL, logger, metricsRecorder)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if enableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, corsAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	requireAuth := authkit.RequireAuth(codec, userStore, serverConfig, logger)
	requireAdmin := authkit.RequireAdmin()

	apiV1 := router.Group("/api/v1")
	authkit.MountAuthRoutes(apiV1.Group("/auth"), sessionManager, codec, userStore, serverConfig, logger)
	catalog.MountRoutes(apiV1.Group("/products"), catalogStore, requireAuth, requireAdmin, logger)
	cart.MountRoutes(apiV1.Group("/carts"), cartStore, requireAuth, logger)
	coupon.MountRoutes(apiV1.Group("/coupons"), couponStore, requireAuth, requireAdmin, logger)

	router.GET("/healthz", func(contextGin *gin.Context) {
		sqlDB, dbErr := gormDB.DB()
		if dbErr != nil || sqlDB.PingContext(contextGin) != nil {
			contextGin.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		if healthChecker, okHealth := sessionStore.(interface{ Health(ctx context.Context) error }); okHealth {
			if pingErr := healthChecker.Health(contextGin); pingErr != nil {
				contextGin.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", listenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
