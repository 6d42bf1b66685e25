package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	configs "github.com/Payphone-Digital/devcamper/config"
	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/handler"
	"github.com/Payphone-Digital/devcamper/internal/middleware"
	"github.com/Payphone-Digital/devcamper/internal/repository"
	"github.com/Payphone-Digital/devcamper/internal/router"
	"github.com/Payphone-Digital/devcamper/internal/service"
	"github.com/Payphone-Digital/devcamper/pkg/circuit"
	"github.com/Payphone-Digital/devcamper/pkg/database"
	"github.com/Payphone-Digital/devcamper/pkg/geocoder"
	"github.com/Payphone-Digital/devcamper/pkg/health"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
	"github.com/Payphone-Digital/devcamper/pkg/mailer"
	"github.com/Payphone-Digital/devcamper/pkg/redis"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()
	log := logger.GetLogger()

	log.Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("version", constants.AppVersion),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(ctx, database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: config.Database.ConnMaxIdleTime,
		SlowThreshold:   200 * time.Millisecond,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if config.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal("Failed to run database migrations", zap.Error(err))
		}
		created := database.EnsureIndexes(ctx, db, log)
		log.Info("Database migrated successfully", zap.Int("indexes", created))
	}

	if config.Seed.Enabled {
		created, err := database.SeedAdmin(ctx, db, database.DefaultAdmin{
			Name:     config.Seed.AdminName,
			Email:    config.Seed.AdminEmail,
			Password: config.Seed.AdminPassword,
		})
		if err != nil {
			// Don't fail - the admin can still be created by hand
			log.Error("Failed to seed admin user", zap.Error(err))
		} else if created {
			log.Info("Admin user seeded", zap.String("email", config.Seed.AdminEmail))
		}
	}

	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, config)
		if err != nil {
			log.Warn("Redis unavailable, falling back to in-process stores", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	if err := middleware.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	// Geocoder
	var (
		geo     geocoder.Geocoder = geocoder.Disabled{}
		breaker *circuit.Breaker
	)
	if config.Geocoder.URL != "" {
		httpGeo := geocoder.NewHTTPGeocoder(geocoder.HTTPConfig{
			BaseURL:    config.Geocoder.URL,
			APIKey:     config.Geocoder.APIKey,
			Timeout:    config.Geocoder.Timeout,
			MaxRetries: 2,
			Breaker: circuit.Config{
				Threshold: config.Geocoder.BreakerThreshold,
				Cooldown:  config.Geocoder.BreakerTimeout,
			},
		}, log)
		breaker = httpGeo.Breaker()

		var geoCache geocoder.Cache
		if redisClient != nil {
			geoCache = geocoder.NewRedisCache(redisClient)
		} else {
			memCache := geocoder.NewMemoryCache(time.Minute)
			defer memCache.Close()
			geoCache = memCache
		}
		geo = geocoder.NewCached(httpGeo, geoCache, config.Geocoder.CacheTTL)
	} else {
		log.Info("Geocoder disabled, bootcamps are saved without a location")
	}

	mail := mailer.New(config.Mail, log)

	// Repositories
	userRepo, err := repository.NewUserRepository(db, config.Query.MaxLimit)
	if err != nil {
		log.Fatal("Failed to build user repository", zap.Error(err))
	}
	bootcampRepo, err := repository.NewBootcampRepository(db, config.Query.MaxLimit)
	if err != nil {
		log.Fatal("Failed to build bootcamp repository", zap.Error(err))
	}
	courseRepo, err := repository.NewCourseRepository(db, config.Query.MaxLimit)
	if err != nil {
		log.Fatal("Failed to build course repository", zap.Error(err))
	}
	reviewRepo, err := repository.NewReviewRepository(db, config.Query.MaxLimit)
	if err != nil {
		log.Fatal("Failed to build review repository", zap.Error(err))
	}

	// Services
	jwtService := service.NewJWTService(config.JWT.Secret, config.JWT.ExpirationTime)
	authService := service.NewAuthService(userRepo, jwtService, mail)
	userService := service.NewUserService(userRepo)
	bootcampService := service.NewBootcampService(bootcampRepo, geo, config.Upload)
	courseService := service.NewCourseService(courseRepo, bootcampRepo)
	reviewService := service.NewReviewService(reviewRepo, bootcampRepo)

	monitor := newMonitor(db, redisClient, breaker, log)
	monitor.Start(ctx)
	defer monitor.Stop()

	var rateLimiter middleware.WindowStore
	if redisClient != nil {
		rateLimiter = redisClient
	}

	r := router.NewRouter(router.Handlers{
		Auth:     handler.NewAuthHandler(authService, config),
		User:     handler.NewUserHandler(userService),
		Bootcamp: handler.NewBootcampHandler(bootcampService),
		Course:   handler.NewCourseHandler(courseService),
		Review:   handler.NewReviewHandler(reviewService),
		Health:   handler.NewHealthHandler(monitor, breaker),
	}, middleware.NewJWTMiddleware(jwtService, userRepo), rateLimiter, config).SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}

// newMonitor registers dependency checks. Only the database is critical;
// the API keeps serving without Redis or the geocoder.
func newMonitor(db *gorm.DB, redisClient *redis.Client, breaker *circuit.Breaker, log *zap.Logger) *health.Monitor {
	monitor := health.NewMonitor(30*time.Second, log)

	monitor.Register("database", true, func(ctx context.Context) error {
		return database.Ping(ctx, db)
	})

	monitor.Register("redis", false, func(ctx context.Context) error {
		if redisClient == nil {
			return health.ErrDisabled
		}
		return redisClient.Ping(ctx)
	})

	monitor.Register("geocoder", false, func(context.Context) error {
		if breaker == nil {
			return health.ErrDisabled
		}
		if breaker.State() == circuit.StateOpen {
			return circuit.ErrOpen
		}
		return nil
	})

	return monitor
}
