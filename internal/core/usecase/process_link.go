package usecase

import (
	"context"
	"fmt"

	"property-harvester-service/internal/contextkeys"
	"property-harvester-service/internal/core/domain"
	"property-harvester-service/internal/core/port"
)

// ProcessLinkUseCase инкапсулирует обработку одной детальной страницы:
// извлечение записи и best-effort обогащение координатами
type ProcessLinkUseCase struct {
	detailsFetcher port.SiteFetcherPort
	geocoder       port.GeocoderPort
}

// NewProcessLinkUseCase создает новый экземпляр use case
func NewProcessLinkUseCase(
	fetcher port.SiteFetcherPort,
	geocoder port.GeocoderPort,
) *ProcessLinkUseCase {
	return &ProcessLinkUseCase{
		detailsFetcher: fetcher,
		geocoder:       geocoder,
	}
}

// Execute выполняет основную логику use case. Любая возвращенная ошибка
// означает пропуск этого URL, но не прерывание прогона: классификацию
// (сеть или отсутствующее обязательное поле) делает вызывающая сторона.
func (uc *ProcessLinkUseCase) Execute(ctx context.Context, source domain.ListingSource, detailURL string) (*domain.Record, error) {

	baseLogger := contextkeys.LoggerFromContext(ctx)
	ucLogger := baseLogger.WithFields(port.Fields{
		"use_case": "ProcessLink",
		"url":      detailURL,
	})

	ucLogger.Debug("Processing link", nil)

	record, fetchErr := uc.detailsFetcher.FetchDetails(ctx, source, detailURL)
	if fetchErr != nil {
		ucLogger.Error("Failed to fetch/parse details", fetchErr, nil)
		return nil, fmt.Errorf("failed to fetch/parse details for %s: %w", detailURL, fetchErr)
	}

	// Геокодирование строго после успешного извлечения: на запись с
	// отсутствующим обязательным полем сетевую квоту геокодера не тратим
	if source.GeocodeField != "" && uc.geocoder != nil {
		address := record.Values[source.GeocodeField]
		if point := uc.geocoder.Resolve(ctx, address); point != nil {
			record.Latitude = &point.Latitude
			record.Longitude = &point.Longitude
		} else {
			ucLogger.Debug("Address was not geocoded, keeping empty coordinates", port.Fields{"address": address})
		}
	}

	ucLogger.Debug("Successfully parsed details", nil)
	return record, nil
}
