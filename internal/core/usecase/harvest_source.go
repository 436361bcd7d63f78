package usecase

import (
	"context"

	"property-harvester-service/internal/contextkeys"
	"property-harvester-service/internal/core/domain"
	"property-harvester-service/internal/core/port"
)

// HarvestSourceUseCase инкапсулирует полный прогон одного источника:
// обход страниц списка, дедупликацию ссылок, обработку каждой ссылки
// и выгрузку результата. Прогон всегда завершается итогом с артефактом -
// даже пустым, даже при аварийном прерывании.
type HarvestSourceUseCase struct {
	listFetcher port.SiteFetcherPort
	processLink *ProcessLinkUseCase
	sinkFactory port.RecordSinkFactoryPort
}

// NewHarvestSourceUseCase создает новый экземпляр use case
func NewHarvestSourceUseCase(
	fetcher port.SiteFetcherPort,
	processLink *ProcessLinkUseCase,
	sinkFactory port.RecordSinkFactoryPort,
) *HarvestSourceUseCase {
	return &HarvestSourceUseCase{
		listFetcher: fetcher,
		processLink: processLink,
		sinkFactory: sinkFactory,
	}
}

// Execute запускает прогон источника. Итог возвращается всегда, в том числе
// вместе с ошибкой: выгрузка накопленных записей происходит и при RunAbort,
// и при отмене контекста.
func (uc *HarvestSourceUseCase) Execute(ctx context.Context, source domain.ListingSource) (domain.HarvestSummary, error) {

	baseLogger := contextkeys.LoggerFromContext(ctx)
	ucLogger := baseLogger.WithFields(port.Fields{
		"use_case": "HarvestSource",
		"source":   source.Name,
	})

	summary := domain.HarvestSummary{Source: source.Name}
	sink := uc.sinkFactory.NewSink(source)

	var runErr error
	if runErr = source.Validate(); runErr != nil {
		// Конфигурация невалидна - сетевой активности не будет, но пустой
		// артефакт все равно должен появиться
		ucLogger.Error("Source configuration is invalid", runErr, nil)
	} else {
		ucLogger.Info("Starting harvest run", port.Fields{
			"strategy":   string(source.Strategy),
			"start_page": source.StartPage(),
		})
		runErr = uc.harvest(ctx, source, sink, &summary, ucLogger)
	}

	// Выгрузка происходит безусловно: частичный результат ценнее потерянного
	artifacts, flushErr := sink.Flush(ctx)
	summary.Artifacts = artifacts
	summary.Records = sink.Count()

	if flushErr != nil {
		ucLogger.Error("Failed to flush harvested records", flushErr, nil)
	}

	ucLogger.Info("Harvest run finished", port.Fields{
		"records":      summary.Records,
		"skipped_urls": summary.SkippedURLs,
		"failed_pages": summary.FailedPages,
		"final_page":   summary.FinalPage,
	})

	if runErr != nil {
		return summary, runErr
	}
	if flushErr != nil {
		return summary, domain.NewRunAbort("failed to flush harvested records for source '"+source.Name+"'", flushErr)
	}
	return summary, nil
}

// harvest - основной цикл обхода. Возвращает ошибку только для проблем
// уровня прогона (отмена контекста); сбои страниц и записей считаются
// и пропускаются.
func (uc *HarvestSourceUseCase) harvest(
	ctx context.Context,
	source domain.ListingSource,
	sink port.RecordSinkPort,
	summary *domain.HarvestSummary,
	logger port.LoggerPort,
) error {

	cursor := domain.NewPageCursor(source)
	seen := domain.NewSeenSet()

	for !cursor.Done() {
		select {
		case <-ctx.Done():
			summary.FinalPage = cursor.FinalPage()
			return domain.NewRunAbort("harvest interrupted", ctx.Err())
		default:
		}

		page := cursor.Page()
		pageLogger := logger.WithFields(port.Fields{"page": page})
		pageLogger.Debug("Fetching listing page", nil)

		pageLinks, err := uc.listFetcher.FetchPageLinks(ctx, source, page)
		if err != nil {
			if domain.IsNotFound(err) {
				// Страницы не существует - это жесткий сигнал конца выдачи,
				// а не сбой, при любой стратегии пагинации
				pageLogger.Info("Listing page does not exist, pagination finished", nil)
				cursor.AdvanceNotFound()
				continue
			}
			pageLogger.Error("Failed to fetch listing page, moving on", err, nil)
			summary.FailedPages++
			cursor.AdvanceFailed()
			continue
		}

		if cursor.TotalPages() == nil {
			// Оценка фиксируется по первой успешно полученной странице.
			// Неразобранное заявленное количество (-1) деградирует до одной
			// страницы, а не до бесконечного обхода.
			cursor.ObserveTotal(pageLinks.DeclaredTotal)
			if tp := cursor.TotalPages(); tp != nil {
				pageLogger.Info("Source declared its size", port.Fields{
					"total_items": pageLinks.DeclaredTotal,
					"total_pages": *tp,
				})
			}
		}

		if len(pageLinks.Links) == 0 {
			pageLogger.Debug("Listing page contains no links", nil)
			cursor.AdvanceEmpty()
			continue
		}

		for _, link := range pageLinks.Links {
			select {
			case <-ctx.Done():
				summary.FinalPage = cursor.FinalPage()
				return domain.NewRunAbort("harvest interrupted", ctx.Err())
			default:
			}

			// Один и тот же URL (повторы в выдаче, "продвигаемые" объявления
			// на нескольких страницах) обрабатывается ровно один раз
			if !seen.Add(link) {
				pageLogger.Debug("Duplicate link, skipping", port.Fields{"url": link})
				continue
			}

			record, procErr := uc.processLink.Execute(ctx, source, link)
			if procErr != nil {
				// Пропускаем этот URL, но продолжаем с остальными
				summary.SkippedURLs++
				continue
			}

			sink.Append(record)
		}

		pageLogger.Debug("Listing page processed", port.Fields{"links": len(pageLinks.Links)})
		cursor.AdvanceHasLinks()
	}

	summary.FinalPage = cursor.FinalPage()
	return nil
}
