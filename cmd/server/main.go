package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/config"
	"github.com/ignatzorin/skillswap-backend/internal/db"
	"github.com/ignatzorin/skillswap-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/skillswap-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/skillswap-backend/internal/http/router"
	"github.com/ignatzorin/skillswap-backend/internal/jobs"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
	"github.com/ignatzorin/skillswap-backend/internal/repository/memory"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

// repositories набор хранилищ, общий для обоих драйверов.
type repositories struct {
	ledger      service.LedgerRepository
	accounts    service.AccountReader
	matches     service.MatchRepository
	leaderboard service.LeaderboardRepository
	runs        service.DistributionRepository
	db          *sqlx.DB
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	retry := common.Retryer{Attempts: cfg.StorageReadRetry, Backoff: 50 * time.Millisecond}
	repos, err := openStorage(ctx, cfg, retry)
	if err != nil {
		log.Fatalf("main: ошибка инициализации хранилища: %v", err)
	}
	if repos.db != nil {
		defer safeClose(repos.db)
	}

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, 15*time.Minute)
	ledgerService := service.NewLedgerService(repos.ledger, retry)
	matchService := service.NewMatchService(repos.matches, repos.accounts, cfg.RewardBaseAmount, cfg.AllowDirectCompletion, retry)
	leaderboardService := service.NewLeaderboardService(repos.leaderboard, cfg.Location)
	distributionService := service.NewDistributionService(repos.runs, leaderboardService, ledgerService,
		cfg.Location, cfg.RewardsTopN, cfg.RewardsWorkers)

	if cfg.RewardsSchedulerEnabled {
		scheduler, err := jobs.NewScheduler(distributionService, cfg.RewardsCron, cfg.Location)
		if err != nil {
			log.Fatalf("main: ошибка планировщика: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		logger.Log.WithField("cron", cfg.RewardsCron).Info("планировщик недельных наград запущен")
	}

	// HTTP хэндлеры.
	healthHandler := httpHandlers.NewHealthHandler(repos.db, cfg.StorageType)
	accountHandler := httpHandlers.NewAccountHandler(ledgerService, matchService)
	matchHandler := httpHandlers.NewMatchHandler(matchService)
	leaderboardHandler := httpHandlers.NewLeaderboardHandler(leaderboardService)
	rewardHandler := httpHandlers.NewRewardHandler(distributionService)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, healthHandler, accountHandler, matchHandler, leaderboardHandler, rewardHandler, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	})

	logger.Log.WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"storage": cfg.StorageType,
	}).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// openStorage выбирает драйвер хранилища по конфигурации.
func openStorage(ctx context.Context, cfg *config.Config, retry common.Retryer) (*repositories, error) {
	if cfg.StorageType == config.StorageDriverMemory {
		store := memory.NewStore()
		logger.Log.Warn("используется хранилище в памяти, данные не сохраняются между запусками")
		return &repositories{
			ledger:      store,
			accounts:    store,
			matches:     store,
			leaderboard: store,
			runs:        store,
		}, nil
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, dbConn, os.DirFS(cfg.MigrationsPath)); err != nil {
		safeClose(dbConn)
		return nil, err
	}

	ledgerRepo := repository.NewLedgerRepository(dbConn).WithRetryer(retry)
	return &repositories{
		ledger:      ledgerRepo,
		accounts:    ledgerRepo,
		matches:     repository.NewMatchRepository(dbConn).WithRetryer(retry),
		leaderboard: repository.NewLeaderboardRepository(dbConn).WithRetryer(retry),
		runs:        repository.NewDistributionRepository(dbConn).WithRetryer(retry),
		db:          dbConn,
	}, nil
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
