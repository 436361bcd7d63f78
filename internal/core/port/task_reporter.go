package port

import (
	"context"

	"property-harvester-service/internal/core/domain"

	"github.com/google/uuid"
)

// TaskReporterPort отправляет итог выполнения задачи обратно планировщику
type TaskReporterPort interface {
	ReportResults(ctx context.Context, taskID uuid.UUID, summaries []domain.HarvestSummary) error
}
