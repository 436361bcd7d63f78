package sitefetcher

import (
	"sort"
	"strings"

	"property-harvester-service/internal/core/domain"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// extractByRule выполняет одну попытку извлечения. Пустая строка - неудача.
func extractByRule(root *goquery.Selection, rule domain.ExtractRule) string {
	sel := root.Find(rule.Selector).First()
	if sel.Length() == 0 {
		return ""
	}

	if rule.Attr != "" {
		value, _ := sel.Attr(rule.Attr)
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(sel.Text())
}

// extractField перебирает попытки по порядку; первая непустая выигрывает
func extractField(root *goquery.Selection, spec domain.FieldSpec) (string, bool) {
	for _, rule := range spec.Attempts {
		if value := extractByRule(root, rule); value != "" {
			return domain.ApplyTransform(value, spec.Transform), true
		}
	}
	return "", false
}

var labelCaser = cases.Upper(language.Und)

// normalizeLabel приводит метку характеристики к каноническому виду:
// схлопнутые пробелы, без двоеточия, первая буква заглавная
func normalizeLabel(raw string) string {
	label := strings.Join(strings.Fields(raw), " ")
	label = strings.TrimSuffix(label, ":")
	if label == "" {
		return ""
	}
	runes := []rune(label)
	first := []rune(labelCaser.String(string(runes[0])))
	runes[0] = first[0]
	return string(runes)
}

// extractTable собирает пары метка-значение из табличной секции
func extractTable(root *goquery.Selection, spec domain.TableSpec, record *domain.Record) {
	section := root.Find(spec.Selector).First()
	if section.Length() == 0 {
		return
	}

	switch spec.Layout {
	case domain.LayoutHeaderRow:
		// Первая строка - метки, вторая - значения
		rows := section.Find("tr")
		if rows.Length() < 2 {
			return
		}
		var labels, values []string
		rows.Eq(0).Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			labels = append(labels, normalizeLabel(cell.Text()))
		})
		rows.Eq(1).Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			values = append(values, strings.TrimSpace(cell.Text()))
		})
		for i, label := range labels {
			if label == "" || i >= len(values) {
				continue
			}
			record.SetCharacteristic(label, values[i])
		}

	default: // LayoutLabelRows
		section.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("th, td")
			if cells.Length() < 2 {
				return
			}
			label := normalizeLabel(cells.Eq(0).Text())
			if label == "" {
				return
			}
			record.SetCharacteristic(label, strings.TrimSpace(cells.Eq(1).Text()))
		})
	}
}

// applyDeriveRule вычисляет производное поле. Правила читают только уже
// извлеченные данные, сырой документ им недоступен.
func applyDeriveRule(record *domain.Record, rule domain.DeriveRule) {
	value := rule.Default

	switch rule.Kind {
	case domain.DeriveCharacteristic:
		if v, ok := record.Characteristics[rule.CharacteristicKey]; ok && v != "" {
			value = v
		}

	case domain.DeriveKeyword:
		haystack := strings.ToLower(record.Values[rule.SourceField])
		// Ключевые слова перебираются в отсортированном порядке,
		// чтобы результат не зависел от обхода map
		keywords := make([]string, 0, len(rule.Keywords))
		for kw := range rule.Keywords {
			keywords = append(keywords, kw)
		}
		sort.Strings(keywords)
		for _, kw := range keywords {
			if strings.Contains(haystack, strings.ToLower(kw)) {
				value = rule.Keywords[kw]
				break
			}
		}
	}

	record.Values[rule.Name] = value
}

// extractRecord применяет полную декларативную схему источника к документу
// детальной страницы. Единственная причина ошибки - отсутствие
// обязательного поля.
func extractRecord(doc *goquery.Document, source domain.ListingSource, pageURL string) (*domain.Record, error) {
	record := domain.NewRecord(pageURL)

	for _, spec := range source.Fields {
		value, ok := extractField(doc.Selection, spec)
		if !ok {
			if spec.Required {
				return nil, &domain.RecordError{Field: spec.Name, URL: pageURL}
			}
			value = spec.Default
		}
		record.Values[spec.Name] = value
	}

	for _, table := range source.Tables {
		extractTable(doc.Selection, table, record)
	}

	for _, rule := range source.Derived {
		applyDeriveRule(record, rule)
	}

	// Тип сделки, заданный самим URL источника, попадает в запись как есть
	if source.TransactionHint != "" {
		if _, ok := record.Values["transaction_type"]; !ok {
			record.Values["transaction_type"] = source.TransactionHint
		}
	}

	return record, nil
}
