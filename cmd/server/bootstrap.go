package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/servimatch/servimatch/internal/api"
	"github.com/servimatch/servimatch/internal/app"
	"github.com/servimatch/servimatch/internal/app/maintenance"
	"github.com/servimatch/servimatch/internal/cache"
	"github.com/servimatch/servimatch/internal/database"
	"github.com/servimatch/servimatch/internal/middleware"
	"github.com/servimatch/servimatch/internal/monitoring"
	"github.com/servimatch/servimatch/internal/monitoring/checks"
	"github.com/servimatch/servimatch/internal/realtime"
	"github.com/servimatch/servimatch/internal/services"
	"github.com/servimatch/servimatch/pkg/logger"
	"github.com/servimatch/servimatch/pkg/mail"
)

// runtimeStack bundles long-lived collaborators used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Redis    cache.Store
	Hub      *realtime.Hub
	Mon      *monitoring.Module
	Rescorer *maintenance.Rescorer
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, cache, monitoring, background
// jobs, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	var store cache.Store = dbStore
	if cfg.Cache.Redis.Enabled {
		redisStore, redisErr := cache.NewRedisStore(cfg.Cache.RedisClientConfig())
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(redisErr))
		} else {
			stack.Redis = redisStore
			store = redisStore
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	stack.Hub = realtime.NewHub()

	stack.Mon, err = initialiseMonitoring(cfg, stack)
	if err != nil {
		return nil, err
	}

	email, err := initialiseEmailSender(cfg, stack.DB)
	if err != nil {
		return nil, err
	}

	var sms services.SMSSender
	if cfg.Notifications.SMSEnabled {
		sms = services.NewLogSMSSender()
	}

	if cfg.Ranking.SweepEnabled {
		ranking, rankErr := services.NewRankingService(stack.DB)
		if rankErr != nil {
			return nil, fmt.Errorf("initialise ranking service: %w", rankErr)
		}
		stack.Rescorer, err = maintenance.NewRescorer(ranking, maintenance.WithSchedule(cfg.Ranking.SweepSchedule))
		if err != nil {
			return nil, fmt.Errorf("initialise rescorer: %w", err)
		}
		if err := stack.Rescorer.Start(); err != nil {
			return nil, fmt.Errorf("start trust score sweep: %w", err)
		}
	}

	var rateStore middleware.RateStore
	switch {
	case stack.Redis != nil:
		rateStore = middleware.NewRedisRateStore(stack.Redis)
	default:
		rateStore = middleware.NewDatabaseRateStore(dbStore)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:    stack.DB,
		Cfg:   cfg,
		Hub:   stack.Hub,
		Store: store,
		Rate:  rateStore,
		Mon:   stack.Mon,
		Email: email,
		SMS:   sms,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func initialiseMonitoring(cfg *app.Config, stack *runtimeStack) (*monitoring.Module, error) {
	if !cfg.Monitoring.Prometheus.Enabled && !cfg.Monitoring.Health.Enabled {
		return nil, nil
	}

	module, err := monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(module)

	health := module.Health()
	health.RegisterLiveness(checks.Database(stack.DB, 2*time.Second))
	health.RegisterReadiness(checks.Database(stack.DB, 2*time.Second))

	var pinger checks.RedisPinger
	if rs, ok := stack.Redis.(*cache.RedisStore); ok {
		pinger = rs
	}
	health.RegisterReadiness(checks.Redis(pinger, cfg.Cache.Redis.Enabled, cfg.Cache.Redis.Timeout))
	health.RegisterReadiness(checks.Realtime(stack.Hub))
	if cfg.Ranking.SweepEnabled {
		health.RegisterReadiness(checks.Maintenance(0))
	}

	return module, nil
}

func initialiseEmailSender(cfg *app.Config, db *gorm.DB) (services.EmailSender, error) {
	if !cfg.Email.SMTP.Enabled {
		return nil, nil
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	return services.NewSMTPEmailSender(mailer, services.NewProfessionalAddressResolver(db))
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Rescorer != nil {
		stopCtx := s.Rescorer.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
	}

	if rc, ok := s.Redis.(*cache.RedisStore); ok && rc != nil {
		if err := rc.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
