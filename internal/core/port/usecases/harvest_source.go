package usecases_port

import (
	"context"

	"property-harvester-service/internal/core/domain"
)

type HarvestSourcePort interface {
	Execute(ctx context.Context, source domain.ListingSource) (domain.HarvestSummary, error)
}
