package usecase

import (
	"context"
	"sync"

	"property-harvester-service/internal/contextkeys"
	"property-harvester-service/internal/core/domain"
	"property-harvester-service/internal/core/port"
	usecases_port "property-harvester-service/internal/core/port/usecases"

	"github.com/google/uuid"
)

// OrchestrateHarvestUseCase выполняет пакет источников параллельно
// и отправляет сводный отчет планировщику
type OrchestrateHarvestUseCase struct {
	harvestUC usecases_port.HarvestSourcePort
	reporter  port.TaskReporterPort
}

// NewOrchestrateHarvestUseCase создает новый экземпляр OrchestrateHarvestUseCase
func NewOrchestrateHarvestUseCase(
	harvestUC usecases_port.HarvestSourcePort,
	reporter port.TaskReporterPort,
) *OrchestrateHarvestUseCase {
	return &OrchestrateHarvestUseCase{
		harvestUC: harvestUC,
		reporter:  reporter,
	}
}

func (uc *OrchestrateHarvestUseCase) Execute(ctx context.Context, sources []domain.ListingSource, taskID uuid.UUID) error {

	baseLogger := contextkeys.LoggerFromContext(ctx)
	ucLogger := baseLogger.WithFields(port.Fields{
		"use_case": "OrchestrateHarvest",
	})

	ucLogger.Info("Starting to perform harvest tasks", port.Fields{"sources_count": len(sources)})

	// Если источников 0 - все равно отчитываемся, чтобы задача закрылась
	if len(sources) == 0 {
		ucLogger.Info("Task contains zero sources. Nothing to do.", nil)
		if uc.reporter != nil {
			if err := uc.reporter.ReportResults(ctx, taskID, nil); err != nil {
				ucLogger.Error("Failed to report results for empty task", err, nil)
			}
		}
		return nil
	}

	// Запускаем все источники параллельно и ждем их завершения.
	// Ошибка одного источника не трогает остальные.
	var wg sync.WaitGroup
	summariesChan := make(chan domain.HarvestSummary, len(sources))

	for _, src := range sources {
		wg.Add(1)
		go func(s domain.ListingSource) {
			defer wg.Done()

			srcLogger := ucLogger.WithFields(port.Fields{"source": s.Name})
			srcCtx := contextkeys.ContextWithLogger(ctx, srcLogger)

			srcLogger.Info("Executing source harvest", nil)

			// Итог возвращается и при ошибке - частичный результат уже выгружен
			summary, err := uc.harvestUC.Execute(srcCtx, s)
			if err != nil {
				srcLogger.Error("Source harvest failed", err, port.Fields{
					"records_flushed": summary.Records,
				})
			}
			summariesChan <- summary
		}(src)
	}

	wg.Wait()
	close(summariesChan)

	summaries := make([]domain.HarvestSummary, 0, len(sources))
	totalRecords := 0
	for s := range summariesChan {
		summaries = append(summaries, s)
		totalRecords += s.Records
	}

	ucLogger.Info("All source harvests completed.", port.Fields{"total_records": totalRecords})

	if uc.reporter != nil {
		if err := uc.reporter.ReportResults(ctx, taskID, summaries); err != nil {
			ucLogger.Error("Failed to send final completion report for task", err, nil)
			return err // Возвращаем ошибку, чтобы брокер попробовал отправить отчет снова
		}
	}

	return nil
}
