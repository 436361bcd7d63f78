package domain

// PaginationStrategy определяет, как источник сообщает о количестве страниц
type PaginationStrategy string

const (
	// StrategyDeclaredCount - первая страница содержит общее количество объявлений,
	// из которого вычисляется число страниц
	StrategyDeclaredCount PaginationStrategy = "declared_count"
	// StrategyEmptySentinel - количество страниц заранее неизвестно,
	// пагинация заканчивается на первой странице без ссылок
	StrategyEmptySentinel PaginationStrategy = "empty_sentinel"
)

// PageWindow - явно заданное окно страниц (start_page, end_page).
// Если задано, оно перекрывает естественное завершение обеих стратегий,
// что позволяет возобновлять или ограничивать прогон.
type PageWindow struct {
	StartPage int
	EndPage   int
}

// ListingSource - seed-конфигурация одного источника. Неизменяема после старта прогона.
type ListingSource struct {
	Name string

	// BaseURL - URL списка объявлений без параметра страницы
	BaseURL string
	// PageParam - имя query-параметра с номером страницы (обычно "page")
	PageParam string
	PageSize  int

	Strategy PaginationStrategy

	// LinkSelector - CSS-селектор ссылок на детальные страницы внутри страницы списка
	LinkSelector string
	// TotalCountRule - правило извлечения общего количества объявлений
	// (используется только при StrategyDeclaredCount)
	TotalCountRule *ExtractRule

	// Window - опциональное окно страниц, заданное вызывающей стороной
	Window *PageWindow
	// MaxPages - явный потолок количества страниц за прогон.
	// 0 означает "без потолка". Используется вместо "тихих" констант.
	MaxPages int

	// Подсказка о типе сделки для источников, у которых тип задан самим URL
	// (например, "?business_type=sale"). Попадает в каждую запись как есть.
	TransactionHint string

	Fields  []FieldSpec
	Tables  []TableSpec
	Derived []DeriveRule

	// GeocodeField - имя извлеченного поля с адресом для геокодирования.
	// Пустая строка отключает обогащение для этого источника.
	GeocodeField string
}

// Validate проверяет конфигурацию источника перед началом прогона.
// Ошибки этого уровня - единственный повод прервать прогон целиком (RunAbort).
func (s ListingSource) Validate() error {
	if s.Name == "" {
		return NewRunAbort("listing source has no name", nil)
	}
	if s.BaseURL == "" {
		return NewRunAbort("listing source '"+s.Name+"' has no base URL", nil)
	}
	if s.LinkSelector == "" {
		return NewRunAbort("listing source '"+s.Name+"' has no link selector", nil)
	}
	if s.Strategy != StrategyDeclaredCount && s.Strategy != StrategyEmptySentinel {
		return NewRunAbort("listing source '"+s.Name+"' has unknown pagination strategy '"+string(s.Strategy)+"'", nil)
	}
	if s.Strategy == StrategyDeclaredCount && s.PageSize <= 0 {
		return NewRunAbort("listing source '"+s.Name+"' uses declared count but has no page size", nil)
	}
	if w := s.Window; w != nil && (w.StartPage < 1 || w.EndPage < w.StartPage) {
		return NewRunAbort("listing source '"+s.Name+"' has an invalid page window", nil)
	}
	for _, f := range s.Fields {
		if f.Name == "" || len(f.Attempts) == 0 {
			return NewRunAbort("listing source '"+s.Name+"' has a field spec without name or extraction attempts", nil)
		}
	}
	return nil
}

// StartPage возвращает первую страницу прогона с учетом окна
func (s ListingSource) StartPage() int {
	if s.Window != nil {
		return s.Window.StartPage
	}
	return 1
}
