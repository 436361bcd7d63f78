package rabbitmq_adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"property-harvester-service/internal/constants"
	"property-harvester-service/internal/contextkeys"
	"property-harvester-service/internal/core/domain"
	"property-harvester-service/internal/core/port"
	usecases_port "property-harvester-service/internal/core/port/usecases"
	"property-harvester-service/pkg/rabbitmq/rabbitmq_common"
	"property-harvester-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// TasksConsumerAdapter слушает очередь задач на сбор данных
type TasksConsumerAdapter struct {
	consumer     *rabbitmq_consumer.DistributingConsumer
	orchestrator usecases_port.OrchestrateHarvestPort
	logger       port.LoggerPort
}

// NewTasksConsumerAdapter создает и настраивает потребителя задач
func NewTasksConsumerAdapter(
	amqpCfg rabbitmq_common.Config,
	connManager *rabbitmq_common.ConnectionManager,
	orchestrator usecases_port.OrchestrateHarvestPort,
	logger port.LoggerPort,
) (*TasksConsumerAdapter, error) {
	adapter := &TasksConsumerAdapter{
		orchestrator: orchestrator,
		logger:       logger,
	}

	consumerCfg := rabbitmq_consumer.ConsumerConfig{
		Config:        amqpCfg,
		QueueName:     constants.QueueHarvestTasks,
		DeclareQueue:  true,
		DurableQueue:  true,
		PrefetchCount: 1,
		ConsumerTag:   "harvest-tasks-consumer",

		EnableRetryMechanism: true,
		RetryExchange:        constants.QueueHarvestTasks + "_retry_exchange",
		RetryQueue:           constants.QueueHarvestTasks + "_retry_wait_queue",
		RetryTTL:             30000,
		FinalDLXExchange:     constants.FinalDLXExchange,
		FinalDLQ:             constants.FinalDLQ,
		FinalDLQRoutingKey:   constants.FinalDLQRoutingKey,
		MaxRetries:           3,

		Logger: NewPkgLoggerBridge(logger),
	}

	consumer, err := rabbitmq_consumer.NewDistributingConsumer(consumerCfg, adapter.messageHandler, connManager)
	if err != nil {
		return nil, fmt.Errorf("tasks consumer adapter: %w", err)
	}
	adapter.consumer = consumer

	return adapter, nil
}

// Start запускает потребление. Блокируется до отмены контекста.
func (a *TasksConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

// Close останавливает потребителя
func (a *TasksConsumerAdapter) Close() error {
	return a.consumer.Close()
}

// messageHandler обрабатывает одну задачу. Возврат ошибки отправляет
// сообщение в цикл ретрая.
func (a *TasksConsumerAdapter) messageHandler(delivery amqp.Delivery) error {
	traceID := extractTraceID(delivery)

	logger := a.logger.WithFields(port.Fields{"trace_id": traceID})
	ctx := contextkeys.ContextWithLogger(context.Background(), logger)
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)

	var task HarvestTaskDTO
	if err := json.Unmarshal(delivery.Body, &task); err != nil {
		logger.Error("Failed to unmarshal harvest task", err, port.Fields{
			"body": string(delivery.Body),
		})
		return fmt.Errorf("tasks consumer adapter: invalid task payload: %w", err)
	}

	if task.TaskID == uuid.Nil {
		task.TaskID = uuid.New()
	}

	logger.Info("Received harvest task", port.Fields{
		"task_id": task.TaskID.String(),
		"sources": task.Sources,
	})

	sources := make([]domain.ListingSource, 0, len(task.Sources))
	for _, name := range task.Sources {
		source, ok := constants.SourceByName(name)
		if !ok {
			// Неизвестное имя не лечится ретраем, сообщение подтверждаем
			logger.Warn("Unknown source in task, skipping", port.Fields{
				"task_id": task.TaskID.String(),
				"source":  name,
			})
			continue
		}
		applyTaskOverrides(&source, task)
		sources = append(sources, source)
	}

	if err := a.orchestrator.Execute(ctx, sources, task.TaskID); err != nil {
		logger.Error("Harvest task failed", err, port.Fields{
			"task_id": task.TaskID.String(),
		})
		return err
	}

	return nil
}

// applyTaskOverrides накладывает параметры задачи на настройки источника
func applyTaskOverrides(source *domain.ListingSource, task HarvestTaskDTO) {
	if task.StartPage != nil || task.EndPage != nil {
		window := domain.PageWindow{}
		if source.Window != nil {
			window = *source.Window
		}
		if task.StartPage != nil {
			window.StartPage = *task.StartPage
		}
		if task.EndPage != nil {
			window.EndPage = *task.EndPage
		}
		source.Window = &window
	}
	if task.MaxPages != nil {
		source.MaxPages = *task.MaxPages
	}
}

// extractTraceID берет trace_id из заголовка сообщения или генерирует новый
func extractTraceID(delivery amqp.Delivery) string {
	if delivery.Headers != nil {
		if raw, ok := delivery.Headers["x-trace-id"]; ok {
			if traceID, ok := raw.(string); ok && traceID != "" {
				return traceID
			}
		}
	}
	return uuid.New().String()
}
