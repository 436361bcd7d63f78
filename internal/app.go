package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"property-harvester-service/internal/adapters/geocoder"
	logger_adapter "property-harvester-service/internal/adapters/logger"
	rabbitmq_adapter "property-harvester-service/internal/adapters/rabbitmq"
	"property-harvester-service/internal/adapters/sink"
	"property-harvester-service/internal/adapters/sitefetcher"
	"property-harvester-service/internal/configs"
	"property-harvester-service/internal/constants"
	"property-harvester-service/internal/contextkeys"
	"property-harvester-service/internal/core/port"
	usecases_port "property-harvester-service/internal/core/port/usecases"
	"property-harvester-service/internal/core/usecase"
	fluentlogger "property-harvester-service/pkg/fluent_logger"
	"property-harvester-service/pkg/postgres"
	"property-harvester-service/pkg/rabbitmq/rabbitmq_common"
	"property-harvester-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App – структура приложения
type App struct {
	config        *configs.AppConfig
	dbPool        *pgxpool.Pool
	connManager   *rabbitmq_common.ConnectionManager
	eventProducer *rabbitmq_producer.Publisher
	fluentClient  *fluent.Fluent
	logger        port.LoggerPort
	baseLogger    port.LoggerPort

	orchestrateUC usecases_port.OrchestrateHarvestPort

	// Входящий порт (слушатель задач). Только в режиме worker.
	tasksListener port.EventListenerPort
}

// NewApp создает новый экземпляр приложения.
// Это "Composition Root", где все зависимости создаются и связываются.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
	var activeLoggers []port.LoggerPort

	slogCfg := logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false, // текстовый формат
		UseColor: true,
	}
	stdoutLogger := logger_adapter.NewSlogAdapter(slogCfg)
	activeLoggers = append(activeLoggers, stdoutLogger)

	// Добавляем Fluent Bit логгер, если он включен в конфигурации
	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName, // Используем имя приложения как префикс
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	// Создаем наш композитный логгер
	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	// --- 2. СОЗДАЕМ БАЗОВЫЙ ЛОГГЕР ПРИЛОЖЕНИЯ С КОНТЕКСТОМ ---
	baseLogger := multiLogger.WithFields(port.Fields{
		"service_name": appConfig.AppName,
	})

	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	// --- 3. НИЗКОУРОВНЕВЫЕ ЗАВИСИМОСТИ ---
	// БД опциональна: без DATABASE_URL записи идут только в файлы
	var dbPool *pgxpool.Pool
	if appConfig.Database.URL != "" {
		dbPool, err = postgres.NewClient(context.Background(), postgres.Config{DatabaseURL: appConfig.Database.URL})
		if err != nil {
			appLogger.Error("Failed to connect to PostgreSQL", err, nil)
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := sink.EnsureSchema(context.Background(), dbPool); err != nil {
			appLogger.Error("Failed to ensure database schema", err, nil)
			dbPool.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		appLogger.Info("Successfully connected to PostgreSQL pool!", nil)
	} else {
		appLogger.Info("DATABASE_URL is not set. Records will be saved to files only.", nil)
	}

	fetcherAdapter, err := sitefetcher.NewSiteFetcherAdapter(sitefetcher.Config{
		MaxAttempts:     appConfig.Fetcher.MaxAttempts,
		RetryBaseDelay:  appConfig.Fetcher.RetryBaseDelay,
		RequestTimeout:  appConfig.Fetcher.RequestTimeout,
		MinHostInterval: appConfig.Fetcher.MinHostInterval,
		HostJitter:      appConfig.Fetcher.HostJitter,
		Parallelism:     appConfig.Fetcher.Parallelism,
	})
	if err != nil {
		appLogger.Error("Failed to create Site Fetcher Adapter", err, nil)
		closePool(dbPool)
		return nil, fmt.Errorf("failed to initialize site fetcher: %w", err)
	}
	appLogger.Info("Site Fetcher Adapter initialized.", nil)

	geocoderAdapter, err := geocoder.NewNominatimAdapter(geocoder.Config{
		BaseURL:     appConfig.Geocoder.BaseURL,
		UserAgent:   appConfig.Geocoder.UserAgent,
		Email:       appConfig.Geocoder.Email,
		MaxAttempts: appConfig.Geocoder.MaxAttempts,
		MinInterval: appConfig.Geocoder.MinInterval,
	})
	if err != nil {
		appLogger.Error("Failed to create Geocoder Adapter", err, nil)
		closePool(dbPool)
		return nil, fmt.Errorf("failed to initialize geocoder: %w", err)
	}
	appLogger.Info("Geocoder Adapter initialized.", nil)

	sinkFactory := sink.NewFactory(appConfig.Output.Dir, dbPool)

	// --- 4. ИНИЦИАЛИЗАЦИЯ USE CASES (ядра бизнес-логики) ---
	processLinkUseCase := usecase.NewProcessLinkUseCase(fetcherAdapter, geocoderAdapter)
	harvestSourceUseCase := usecase.NewHarvestSourceUseCase(fetcherAdapter, processLinkUseCase, sinkFactory)

	application := &App{
		config:       appConfig,
		dbPool:       dbPool,
		fluentClient: fluentClient,
		logger:       appLogger,
		baseLogger:   baseLogger,
	}

	// --- 5. ТРАНСПОРТ ЗАДАЧ (только в режиме worker) ---
	if appConfig.Mode == configs.ModeWorker {
		connManagerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
		connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(connManagerLogger)
		connManager, err := rabbitmq_common.GetManager(appConfig.RabbitMQ.URL, connManagerBridge)
		if err != nil {
			appLogger.Error("Failed to create connection manager", err, nil)
			closePool(dbPool)
			return nil, fmt.Errorf("failed to create connection manager: %w", err)
		}
		appLogger.Info("RabbitMQ Connection Manager initialized.", nil)

		producerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})
		producerCfg := rabbitmq_producer.PublisherConfig{
			Config: rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			// Отчеты идут в default exchange напрямую в очередь планировщика
			Logger: rabbitmq_adapter.NewPkgLoggerBridge(producerLogger),
		}
		eventProducer, err := rabbitmq_producer.NewPublisher(producerCfg, connManager)
		if err != nil {
			appLogger.Error("Failed to create event producer", err, port.Fields{"url": appConfig.RabbitMQ.URL})
			closePool(dbPool)
			return nil, fmt.Errorf("failed to create event producer: %w", err)
		}
		appLogger.Info("RabbitMQ Event Producer initialized.", nil)

		reporter := rabbitmq_adapter.NewTaskReporterAdapter(eventProducer, constants.RoutingKeyTaskResults)
		orchestrateUseCase := usecase.NewOrchestrateHarvestUseCase(harvestSourceUseCase, reporter)

		tasksListener, err := rabbitmq_adapter.NewTasksConsumerAdapter(
			rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			connManager,
			orchestrateUseCase,
			baseLogger,
		)
		if err != nil {
			appLogger.Error("Failed to initialize Tasks Listener", err, nil)
			eventProducer.Close()
			closePool(dbPool)
			return nil, err
		}
		appLogger.Info("Tasks Listener initialized.", nil)

		application.connManager = connManager
		application.eventProducer = eventProducer
		application.orchestrateUC = orchestrateUseCase
		application.tasksListener = tasksListener
	} else {
		// В одноразовом режиме отчет никуда не отправляется
		application.orchestrateUC = usecase.NewOrchestrateHarvestUseCase(harvestSourceUseCase, nil)
	}

	appLogger.Info("All use cases initialized.", nil)

	return application, nil
}

// Run запускает все компоненты приложения и управляет их жизненным циклом.
func (a *App) Run() error {
	// Создаем единый контекст для всего приложения для управления graceful shutdown
	appCtx, cancelApp := context.WithCancel(context.Background())

	// Используем WaitGroup для ожидания завершения всех фоновых задач
	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		// Ждем завершения всех запущенных горутин
		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		// Теперь безопасно закрываем ресурсы
		if a.tasksListener != nil {
			if err := a.tasksListener.Close(); err != nil {
				a.logger.Error("Error closing tasks listener", err, nil)
			}
		}
		if a.eventProducer != nil {
			if err := a.eventProducer.Close(); err != nil {
				a.logger.Error("Error closing event producer", err, nil)
			}
		}

		if a.connManager != nil {
			if err := a.connManager.Close(); err != nil {
				a.logger.Error("Error closing RabbitMQ connection manager", err, nil)
			}
		}

		if a.dbPool != nil {
			a.dbPool.Close()
			a.logger.Info("PostgreSQL pool closed.", nil)
		}

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			a.logger.Info("Closing Fluent Bit connection...", nil)
			if err := a.fluentClient.Close(); err != nil {
				log.Printf("App: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", port.Fields{"mode": a.config.Mode})

	componentErrors := make(chan error, 1)
	done := make(chan struct{}, 1)

	if a.config.Mode == configs.ModeWorker {
		wg.Add(1)
		go func() {
			defer wg.Done()
			listenerLogger := a.logger.WithFields(port.Fields{"listener_name": "Harvest Tasks Listener"})
			listenerLogger.Info("Starting listener...", nil)

			if err := a.tasksListener.Start(appCtx); err != nil {
				listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
				componentErrors <- fmt.Errorf("tasks listener error: %w", err)
			} else {
				listenerLogger.Info("Listener stopped gracefully due to context cancellation.", nil)
			}
		}()
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runOneShot(appCtx)
			done <- struct{}{}
		}()
	}

	// Ожидание сигнала на завершение или ошибки от одного из компонентов
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or component error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received signal, shutting down", port.Fields{"signal": receivedSignal.String()})
	case err := <-componentErrors:
		a.logger.Error("A critical component failed, shutting down", err, nil)
	case <-done:
		a.logger.Info("One-shot run finished.", nil)
	case <-appCtx.Done():
		a.logger.Warn("Context was cancelled unexpectedly, shutting down", nil)
	}

	// Инициируем graceful shutdown, отменяя главный контекст
	cancelApp()

	return nil
}

// runOneShot прогоняет все преднастроенные источники один раз
func (a *App) runOneShot(ctx context.Context) {
	taskID := uuid.New()
	runLogger := a.baseLogger.WithFields(port.Fields{"trace_id": taskID.String()})

	runCtx := contextkeys.ContextWithLogger(ctx, runLogger)
	runCtx = contextkeys.ContextWithTraceID(runCtx, taskID.String())

	if err := a.orchestrateUC.Execute(runCtx, constants.PredefinedSources, taskID); err != nil {
		a.logger.Error("One-shot harvest finished with error", err, nil)
		return
	}
	a.logger.Info("One-shot harvest finished successfully.", nil)
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		// Возвращаем безопасное значение по умолчанию и логируем предупреждение
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
