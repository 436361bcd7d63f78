package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"property-harvester-service/internal/core/domain"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// ExcelSinkAdapter накапливает записи в памяти и выгружает их в xlsx.
// Append - O(1), вся работа со схемой и файлом откладывается до Flush.
type ExcelSinkAdapter struct {
	source domain.ListingSource
	path   string

	mu      sync.Mutex
	records []*domain.Record
}

// NewExcelSinkAdapter - конструктор. Путь артефакта фиксируется при создании,
// поэтому повторный Flush перезаписывает тот же файл, а не плодит копии.
func NewExcelSinkAdapter(outputDir string, source domain.ListingSource) *ExcelSinkAdapter {
	fileName := fmt.Sprintf("%s_%s.xlsx", sanitizeFileName(source.Name), time.Now().Format("2006-01-02_15-04-05"))
	return &ExcelSinkAdapter{
		source: source,
		path:   filepath.Join(outputDir, fileName),
	}
}

func (s *ExcelSinkAdapter) Append(record *domain.Record) {
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
}

func (s *ExcelSinkAdapter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Flush записывает артефакт целиком из буфера. Пустой буфер дает валидный
// файл с одной строкой заголовков - "ничего не найдено" тоже результат.
func (s *ExcelSinkAdapter) Flush(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	records := make([]*domain.Record, len(s.records))
	copy(records, s.records)
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("excel sink: failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	columns := buildColumns(s.source, records)

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("excel sink: failed to write header: %w", err)
	}

	for i, rec := range records {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = cellValue(rec, col)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("excel sink: failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("excel sink: failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return nil, fmt.Errorf("excel sink: failed to save artifact %s: %w", s.path, err)
	}

	return []string{s.path}, nil
}

// sanitizeFileName убирает из имени источника символы, опасные для путей
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
