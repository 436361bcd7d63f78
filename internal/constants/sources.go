package constants

import "property-harvester-service/internal/core/domain"

// DefaultMaxPages - явный потолок страниц за один прогон.
// Задается здесь, а не "тихой" константой внутри цикла обхода.
const DefaultMaxPages = 200

// Колонки и производные поля записей
const (
	FieldName        = "name"
	FieldPrice       = "price"
	FieldTransaction = "transaction"
	FieldAddress     = "address"
	FieldDescription = "description"

	DerivedPropertyType = "property_type"
	DerivedArea         = "area"

	MissingValue = "N/A"
)

// anemSource - преднастроенный источник: каталог anem-ks с фиксированным
// типом сделки в URL. Тип страницы деталей одинаковый для продажи и аренды.
func anemSource(name, businessType string) domain.ListingSource {
	return domain.ListingSource{
		Name:            name,
		BaseURL:         "https://anem-ks.com/properties?business_type=" + businessType,
		PageParam:       "page",
		Strategy:        domain.StrategyEmptySentinel,
		LinkSelector:    ".property-box a.property-img",
		MaxPages:        DefaultMaxPages,
		TransactionHint: businessType,
		GeocodeField:    FieldAddress,
		Fields: []domain.FieldSpec{
			{
				Name:      FieldName,
				Attempts:  []domain.ExtractRule{{Selector: ".heading-properties-3 h1"}},
				Required:  true,
				Transform: domain.TransformCollapse,
			},
			{
				Name: FieldPrice,
				Attempts: []domain.ExtractRule{
					{Selector: ".heading-properties-3 .property-price"},
					{Selector: ".property-price"},
				},
				Default:   MissingValue,
				Transform: domain.TransformTrim,
			},
			{
				Name:      FieldTransaction,
				Attempts:  []domain.ExtractRule{{Selector: ".heading-properties-3 .rent"}},
				Default:   MissingValue,
				Transform: domain.TransformTrim,
			},
			{
				Name: FieldAddress,
				Attempts: []domain.ExtractRule{
					{Selector: ".heading-properties-3 .location"},
					{Selector: ".location"},
				},
				Transform: domain.TransformCollapse,
			},
			{
				Name:      FieldDescription,
				Attempts:  []domain.ExtractRule{{Selector: ".properties-description p"}},
				Default:   "",
				Transform: domain.TransformCollapse,
			},
		},
		Tables: []domain.TableSpec{
			{
				Name:     "characteristics",
				Selector: ".floor-plans table:nth-of-type(1)",
				Layout:   domain.LayoutHeaderRow,
			},
			{
				Name:     "features",
				Selector: ".floor-plans table:nth-of-type(2)",
				Layout:   domain.LayoutHeaderRow,
			},
		},
		Derived: []domain.DeriveRule{
			{
				Name:              DerivedPropertyType,
				Kind:              domain.DeriveCharacteristic,
				CharacteristicKey: "Lloj",
				Default:           MissingValue,
			},
			{
				Name:              DerivedArea,
				Kind:              domain.DeriveCharacteristic,
				CharacteristicKey: "Siperfaqe Bruto",
				Default:           MissingValue,
			},
		},
	}
}

// PredefinedSources - источники, доступные по имени в задачах и в
// одноразовом режиме запуска
var PredefinedSources = []domain.ListingSource{
	anemSource("anem-ks-sale", "sale"),
	anemSource("anem-ks-rent", "rent"),
}

// SourceByName находит преднастроенный источник по имени
func SourceByName(name string) (domain.ListingSource, bool) {
	for _, s := range PredefinedSources {
		if s.Name == name {
			return s, true
		}
	}
	return domain.ListingSource{}, false
}
