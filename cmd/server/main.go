package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/cityfix-backend/internal/config"
	"github.com/ignatzorin/cityfix-backend/internal/db"
	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/goroutine"
	"github.com/ignatzorin/cityfix-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/cityfix-backend/internal/http/router"
	"github.com/ignatzorin/cityfix-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/cityfix-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/cityfix-backend/internal/interface/http/handler"
	"github.com/ignatzorin/cityfix-backend/internal/logger"
	"github.com/ignatzorin/cityfix-backend/internal/metrics"
	"github.com/ignatzorin/cityfix-backend/internal/service"
	"github.com/ignatzorin/cityfix-backend/internal/usecase/community"
	"github.com/ignatzorin/cityfix-backend/internal/usecase/issue"
	"github.com/ignatzorin/cityfix-backend/internal/ws"
)

// stores объединяет реализации хранилища выбранного драйвера.
type stores struct {
	issues    repository.IssueRepository
	users     repository.UserDirectory
	community repository.CommunityReader
	pinger    handler.Pinger
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.IsProduction() {
		logger.Init(cfg.LogLevel)
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.Init("debug")
		logger.SetTextFormatter()
	}

	// Лишние поля в JSON считаются ошибкой запроса.
	binding.EnableDecoderDisallowUnknownFields = true

	st, closeStore := openStores(ctx, cfg)
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Вебсокеты.
	hub := ws.NewHub(logger.Log.WithField("component", "ws"), m)
	goroutine.SafeGoWithContext(ctx, hub.Run)

	// Администратор.
	adminTokens := service.NewAdminTokenManager(cfg.JWTSecret, cfg.AdminTokenTTL)
	adminAuth, err := service.NewAdminAuthenticator(cfg.AdminPasswordHash, cfg.AdminPassword, adminTokens)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить пароль администратора: %v", err)
	}

	limiterStore, closeLimiter, err := middleware.NewLimiterStore(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}
	defer func() { _ = closeLimiter() }()

	// Use cases.
	policy := entity.IssuePolicy{Bounds: cfg.GeoBounds, MaxImageLength: cfg.MaxImageLength}
	locks := issue.NewIssueLocks()

	issueHandler := handler.NewIssueHandler(
		issue.NewCreateIssueUseCase(st.issues, st.users, hub, policy, m),
		issue.NewTransitionStatusUseCase(st.issues, hub, locks, m),
		issue.NewDeleteIssueUseCase(st.issues, hub, locks, m),
		issue.NewGetIssueUseCase(st.issues, st.users),
		issue.NewListIssuesUseCase(st.issues),
	)
	communityHandler := handler.NewCommunityHandler(
		community.NewGetUserProfileUseCase(st.community),
		community.NewLeaderboardUseCase(st.community),
		community.NewListUsersUseCase(st.community),
		community.NewAdminStatsUseCase(st.community),
	)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Issue:     issueHandler,
		Community: communityHandler,
		WS:        handler.NewWSHandler(hub, cfg.AllowedOrigins, cfg.WSSendBuffer),
		Health:    handler.NewHealthHandler(st.pinger, hub),
	}, adminAuth, limiterStore, registry)

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
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.Log.WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"storage": cfg.StorageDriver,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

func openStores(ctx context.Context, cfg *config.Config) (stores, func()) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.NewStore()
		seedDemoUsers(store)
		logger.Log.Warn("main: используется хранилище в памяти, данные не сохраняются")
		return stores{issues: store, users: store, community: store}, func() {}
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	users := persistence.NewUserRepository(dbConn)
	return stores{
		issues:    persistence.NewIssueRepository(dbConn),
		users:     users,
		community: users,
		pinger:    dbConn,
	}, func() { safeClose(dbConn) }
}

// seedDemoUsers заполняет хранилище в памяти, чтобы локально было кому начислять баллы.
func seedDemoUsers(store *memory.Store) {
	for _, name := range []string{"demo_citizen", "demo_volunteer"} {
		u := store.SeedUser(entity.User{Username: name, Email: name + "@cityfix.local"})
		logger.Log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("main: демо-пользователь создан")
	}
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Error("main: ошибка закрытия базы")
	}
}
