package rabbitmq_adapter

import "github.com/google/uuid"

// HarvestTaskDTO - входящая задача на сбор данных.
// Sources - имена преднастроенных источников. Поля окна и лимита
// опциональны и переопределяют настройки источника на один прогон.
type HarvestTaskDTO struct {
	TaskID    uuid.UUID `json:"task_id"`
	Sources   []string  `json:"sources"`
	StartPage *int      `json:"start_page,omitempty"`
	EndPage   *int      `json:"end_page,omitempty"`
	MaxPages  *int      `json:"max_pages,omitempty"`
}

// SourceReportDTO - итог по одному источнику
type SourceReportDTO struct {
	Source      string   `json:"source"`
	Records     int      `json:"records"`
	SkippedURLs int      `json:"skipped_urls"`
	FailedPages int      `json:"failed_pages"`
	FinalPage   int      `json:"final_page"`
	Artifacts   []string `json:"artifacts"`
}

// TaskReportDTO - исходящее сообщение с результатами задачи
type TaskReportDTO struct {
	TaskID  uuid.UUID         `json:"task_id"`
	Results []SourceReportDTO `json:"results"`
}
