package domain

import "strings"

// Transform - пост-обработка извлеченного значения
type Transform string

const (
	TransformNone Transform = ""
	TransformTrim Transform = "trim"
	// TransformCollapse схлопывает последовательности пробельных символов в один пробел
	TransformCollapse Transform = "collapse_space"
	TransformLower    Transform = "lower"
)

// ExtractRule - одна попытка извлечения: селектор и, опционально, атрибут.
// Пустой Attr означает текстовое содержимое элемента.
type ExtractRule struct {
	Selector string
	Attr     string
}

// FieldSpec описывает одно поле записи. Попытки перебираются по порядку,
// первая успешная выигрывает - это обобщение цепочек "if X elif Y",
// которые раньше были размазаны по коду каждого сайта.
type FieldSpec struct {
	Name      string
	Attempts  []ExtractRule
	Required  bool
	Default   string
	Transform Transform
}

// TableLayout - ориентация таблицы характеристик
type TableLayout string

const (
	// LayoutLabelRows - каждая строка таблицы это пара <td>метка</td><td>значение</td>
	LayoutLabelRows TableLayout = "label_rows"
	// LayoutHeaderRow - первая строка содержит метки, вторая значения
	LayoutHeaderRow TableLayout = "header_row"
)

// TableSpec описывает свободную секцию "характеристики"/"удобства":
// пары метка-значение складываются в под-словарь записи
type TableSpec struct {
	Name     string
	Selector string
	Layout   TableLayout
}

// DeriveKind - вид правила деривации
type DeriveKind string

const (
	// DeriveCharacteristic - значение берется из уже извлеченной характеристики по ключу
	DeriveCharacteristic DeriveKind = "characteristic"
	// DeriveKeyword - значение подбирается по первому ключевому слову,
	// найденному в уже извлеченном поле (например, тип недвижимости из заголовка)
	DeriveKeyword DeriveKind = "keyword"
)

// DeriveRule - производное поле. Выполняется после основного извлечения
// и читает только уже извлеченные данные, никогда - сырой документ.
type DeriveRule struct {
	Name string
	Kind DeriveKind

	// Для DeriveCharacteristic: ключ в под-словаре характеристик
	CharacteristicKey string
	// Для DeriveKeyword: поле-источник и словарь "ключевое слово -> значение"
	SourceField string
	Keywords    map[string]string

	Default string
}

// Record - одна извлеченная запись. После добавления в результат прогона
// запись не мутируется: обогащение происходит до Append.
type Record struct {
	// URL детальной страницы, с которой извлечена запись
	URL string

	// Values - значения полей; порядок колонок при экспорте задается
	// порядком объявления FieldSpec, а не этим словарем
	Values map[string]string

	// Characteristics - свободные пары метка-значение из табличных секций
	Characteristics map[string]string
	// CharacteristicOrder - порядок первого появления меток, для стабильного экспорта
	CharacteristicOrder []string

	Latitude  *float64
	Longitude *float64
}

func NewRecord(url string) *Record {
	return &Record{
		URL:             url,
		Values:          make(map[string]string),
		Characteristics: make(map[string]string),
	}
}

// SetCharacteristic добавляет пару метка-значение, запоминая порядок первого появления
func (r *Record) SetCharacteristic(label, value string) {
	if _, ok := r.Characteristics[label]; !ok {
		r.CharacteristicOrder = append(r.CharacteristicOrder, label)
	}
	r.Characteristics[label] = value
}

// ApplyTransform применяет пост-обработку к извлеченному значению
func ApplyTransform(value string, t Transform) string {
	switch t {
	case TransformTrim:
		return strings.TrimSpace(value)
	case TransformCollapse:
		return strings.Join(strings.Fields(value), " ")
	case TransformLower:
		return strings.ToLower(strings.TrimSpace(value))
	default:
		return value
	}
}

// HarvestSummary - итог одного прогона источника.
// FinalPage - последняя посещенная страница; следующий прогон может
// передать окно (FinalPage+1, ...) и не обходить покрытые страницы заново.
type HarvestSummary struct {
	Source      string
	Records     int
	SkippedURLs int
	FailedPages int
	FinalPage   int
	Artifacts   []string
}
