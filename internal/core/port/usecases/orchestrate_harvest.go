package usecases_port

import (
	"context"

	"property-harvester-service/internal/core/domain"

	"github.com/google/uuid"
)

type OrchestrateHarvestPort interface {
	Execute(ctx context.Context, sources []domain.ListingSource, taskID uuid.UUID) error
}
