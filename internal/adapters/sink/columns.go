package sink

import (
	"strconv"

	"property-harvester-service/internal/core/domain"
)

// buildColumns вычисляет схему артефакта: фиксированные колонки источника
// плюс объединение меток характеристик по всем записям прогона.
// Запись, у которой какой-то колонки нет, получит в ней пустую ячейку.
func buildColumns(source domain.ListingSource, records []*domain.Record) []string {
	columns := []string{"url"}
	seen := map[string]bool{"url": true}

	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		columns = append(columns, name)
	}

	for _, f := range source.Fields {
		add(f.Name)
	}
	for _, d := range source.Derived {
		add(d.Name)
	}
	if source.TransactionHint != "" {
		add("transaction_type")
	}
	add("latitude")
	add("longitude")

	// Характеристики - в порядке первого появления по всем записям
	for _, rec := range records {
		for _, label := range rec.CharacteristicOrder {
			add(label)
		}
	}

	return columns
}

// cellValue возвращает значение записи для колонки
func cellValue(rec *domain.Record, column string) string {
	switch column {
	case "url":
		return rec.URL
	case "latitude":
		if rec.Latitude != nil {
			return strconv.FormatFloat(*rec.Latitude, 'f', -1, 64)
		}
		return ""
	case "longitude":
		if rec.Longitude != nil {
			return strconv.FormatFloat(*rec.Longitude, 'f', -1, 64)
		}
		return ""
	}

	if v, ok := rec.Values[column]; ok {
		return v
	}
	if v, ok := rec.Characteristics[column]; ok {
		return v
	}
	return ""
}
