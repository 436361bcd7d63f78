package rabbitmq_adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"property-harvester-service/internal/contextkeys"
	"property-harvester-service/internal/core/domain"
	"property-harvester-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 10 * time.Second

// TaskReporterAdapter публикует итоги выполнения задач
type TaskReporterAdapter struct {
	producer   *rabbitmq_producer.Publisher
	routingKey string
}

// NewTaskReporterAdapter создает нового отправителя отчетов
func NewTaskReporterAdapter(producer *rabbitmq_producer.Publisher, routingKey string) *TaskReporterAdapter {
	return &TaskReporterAdapter{
		producer:   producer,
		routingKey: routingKey,
	}
}

// ReportResults сериализует и публикует отчет по задаче
func (a *TaskReporterAdapter) ReportResults(ctx context.Context, taskID uuid.UUID, summaries []domain.HarvestSummary) error {
	report := TaskReportDTO{
		TaskID:  taskID,
		Results: make([]SourceReportDTO, 0, len(summaries)),
	}
	for _, s := range summaries {
		report.Results = append(report.Results, SourceReportDTO{
			Source:      s.Source,
			Records:     s.Records,
			SkippedURLs: s.SkippedURLs,
			FailedPages: s.FailedPages,
			FinalPage:   s.FinalPage,
			Artifacts:   s.Artifacts,
		})
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("task reporter adapter: failed to marshal report: %w", err)
	}

	headers := amqp.Table{}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = a.producer.Publish(publishCtx, a.routingKey, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		Headers:      headers,
		Timestamp:    time.Now(),
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("task reporter adapter: failed to publish report: %w", err)
	}

	return nil
}
