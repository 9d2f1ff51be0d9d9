package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ops-console/internal/api/http"
	"github.com/spec-kit/ops-console/internal/api/http/handlers"
	"github.com/spec-kit/ops-console/internal/auth"
	"github.com/spec-kit/ops-console/internal/config"
	"github.com/spec-kit/ops-console/internal/events"
	"github.com/spec-kit/ops-console/internal/observability"
	"github.com/spec-kit/ops-console/internal/persistence"
	"github.com/spec-kit/ops-console/internal/repository"
	"github.com/spec-kit/ops-console/internal/service"
	"github.com/spec-kit/ops-console/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	playbookRepo := repository.NewPlaybookRepository(pool)
	stepRepo := repository.NewStepRepository(pool)
	incidentRepo := repository.NewIncidentRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	transactor := repository.NewPgxTransactor(pool)

	dispatcher := events.NewInMemoryDispatcher()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     userRepo,
		TokenManager: tokenManager,
		BcryptCost:   cfg.Auth.BcryptCost,
		Logger:       logger,
	})
	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo)

	directoryService := service.NewDirectoryService(service.DirectoryDependencies{
		DepartmentRepo: departmentRepo,
		MemberRepo:     memberRepo,
		Logger:         logger,
	})
	templateService := service.NewTemplateService(service.TemplateDependencies{
		TemplateRepo:   templateRepo,
		DepartmentRepo: departmentRepo,
		Logger:         logger,
	})
	playbookService := service.NewPlaybookService(service.PlaybookDependencies{
		PlaybookRepo: playbookRepo,
		StepRepo:     stepRepo,
		IncidentRepo: incidentRepo,
		Transactor:   transactor,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	stepService := service.NewStepService(service.StepDependencies{
		PlaybookService: playbookService,
		StepRepo:        stepRepo,
		TemplateRepo:    templateRepo,
		DepartmentRepo:  departmentRepo,
		Transactor:      transactor,
		Logger:          logger,
	})
	taskGenService := service.NewTaskGenerationService(service.TaskGenerationDependencies{
		StepService: stepService,
		MemberRepo:  memberRepo,
		TaskRepo:    taskRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:     taskRepo,
		IncidentRepo: incidentRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	incidentService := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo:   incidentRepo,
		PlaybookRepo:   playbookRepo,
		TaskGeneration: taskGenService,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		RedisClient:      redis.ClientHandle(),
		GuardTTL:         cfg.Notification.OverdueGuardTTL(),
		Logger:           logger,
	})

	worker.StartNotificationWorker(notificationService, dispatcher)
	worker.StartOverdueSweep(ctx, taskService, cfg.Notification.OverdueSweepInterval(), logger)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Directory:      handlers.NewDirectoryHandler(directoryService),
		Templates:      handlers.NewTemplatesHandler(templateService),
		Playbooks:      handlers.NewPlaybooksHandler(playbookService, stepService),
		Incidents:      handlers.NewIncidentsHandler(incidentService, taskService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Notifications:  handlers.NewNotificationsHandler(notificationService, taskService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
