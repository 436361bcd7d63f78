package sink

import (
	"context"
	"testing"

	"property-harvester-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testSource() domain.ListingSource {
	return domain.ListingSource{
		Name: "demo source",
		Fields: []domain.FieldSpec{
			{Name: "title", Attempts: []domain.ExtractRule{{Selector: "h1"}}},
			{Name: "price", Attempts: []domain.ExtractRule{{Selector: ".price"}}},
		},
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	return rows
}

func TestExcelSink_WritesRecords(t *testing.T) {
	s := NewExcelSinkAdapter(t.TempDir(), testSource())

	rec := domain.NewRecord("https://site.example/item/1")
	rec.Values["title"] = "Banesa"
	rec.Values["price"] = "95000"
	lat, lon := 42.66, 21.16
	rec.Latitude, rec.Longitude = &lat, &lon
	s.Append(rec)

	artifacts, err := s.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, artifacts, 1)

	rows := readRows(t, artifacts[0])
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"url", "title", "price", "latitude", "longitude"}, rows[0])
	assert.Equal(t, []string{"https://site.example/item/1", "Banesa", "95000", "42.66", "21.16"}, rows[1])
}

// Прогон без записей обязан дать валидный артефакт с заголовками
func TestExcelSink_EmptyRunProducesValidArtifact(t *testing.T) {
	s := NewExcelSinkAdapter(t.TempDir(), testSource())

	artifacts, err := s.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, artifacts, 1)

	rows := readRows(t, artifacts[0])
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"url", "title", "price", "latitude", "longitude"}, rows[0])
	assert.Equal(t, 0, s.Count())
}

// Схема - объединение: характеристики, встреченные хотя бы у одной записи,
// становятся колонками для всех
func TestExcelSink_UnionSchemaAcrossRecords(t *testing.T) {
	s := NewExcelSinkAdapter(t.TempDir(), testSource())

	first := domain.NewRecord("https://site.example/item/1")
	first.Values["title"] = "A"
	first.SetCharacteristic("Rooms", "3")

	second := domain.NewRecord("https://site.example/item/2")
	second.Values["title"] = "B"
	second.SetCharacteristic("Garage", "yes")

	s.Append(first)
	s.Append(second)

	artifacts, err := s.Flush(context.Background())
	require.NoError(t, err)

	rows := readRows(t, artifacts[0])
	assert.Equal(t, []string{"url", "title", "price", "latitude", "longitude", "Rooms", "Garage"}, rows[0])
	// Отсутствующая характеристика - пустая ячейка, а не сдвиг колонок
	assert.Equal(t, "3", rows[1][5])
	require.Len(t, rows[2], 7)
	assert.Equal(t, "", rows[2][5])
	assert.Equal(t, "yes", rows[2][6])
}

// Повторный Flush того же буфера дает тот же файл, без дублей
func TestExcelSink_FlushIsIdempotent(t *testing.T) {
	s := NewExcelSinkAdapter(t.TempDir(), testSource())

	rec := domain.NewRecord("https://site.example/item/1")
	rec.Values["title"] = "A"
	s.Append(rec)

	firstArtifacts, err := s.Flush(context.Background())
	require.NoError(t, err)
	secondArtifacts, err := s.Flush(context.Background())
	require.NoError(t, err)

	assert.Equal(t, firstArtifacts, secondArtifacts, "the artifact path must be stable")
	rows := readRows(t, secondArtifacts[0])
	assert.Len(t, rows, 2)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "demo_source", sanitizeFileName("demo source"))
	assert.Equal(t, "a_b_c", sanitizeFileName("a/b:c"))
}
