package sitefetcher

import (
	"context"

	"property-harvester-service/internal/contextkeys"
	"property-harvester-service/internal/core/domain"
	"property-harvester-service/internal/core/port"
)

// FetchDetails загружает детальную страницу и извлекает из нее запись
// по декларативной схеме источника
func (a *SiteFetcherAdapter) FetchDetails(ctx context.Context, source domain.ListingSource, detailURL string) (*domain.Record, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	fetchDetailsLogger := logger.WithFields(port.Fields{"component": "SiteFetcherAdapter(FetchDetails)"})

	doc, fetchErr := a.fetchDocument(ctx, detailURL, fetchDetailsLogger)
	if fetchErr != nil {
		return nil, fetchErr
	}

	record, err := extractRecord(doc, source, detailURL)
	if err != nil {
		fetchDetailsLogger.Warn("Record rejected by extraction schema", port.Fields{
			"url":   detailURL,
			"error": err.Error(),
		})
		return nil, err
	}

	fetchDetailsLogger.Debug("Successfully extracted record", port.Fields{
		"url":    detailURL,
		"fields": len(record.Values),
	})
	return record, nil
}
