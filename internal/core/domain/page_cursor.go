package domain

// PageCursor отслеживает прогресс обхода страниц списка для одного источника.
// Машина состояний: Init -> FetchingPage(n) -> {HasLinks: n+1} | {Empty | NotFound | n > end: Done}.
// Терминальное состояние несет последний посещенный номер страницы.
type PageCursor struct {
	source ListingSource

	page int
	// totalPages - оценка общего числа страниц; nil, пока первая страница
	// не получена (или стратегия ее не дает)
	totalPages *int
	done       bool
	// lastVisited - последняя реально посещенная страница
	lastVisited int
}

func NewPageCursor(source ListingSource) *PageCursor {
	return &PageCursor{
		source: source,
		page:   source.StartPage(),
	}
}

// Page возвращает номер страницы, которую нужно запросить следующей
func (c *PageCursor) Page() int { return c.page }

// Done сообщает, закончен ли обход
func (c *PageCursor) Done() bool {
	if c.done {
		return true
	}
	if w := c.source.Window; w != nil && c.page > w.EndPage {
		return true
	}
	if c.source.MaxPages > 0 && c.page >= c.source.StartPage()+c.source.MaxPages {
		return true
	}
	if c.totalPages != nil && c.page > *c.totalPages {
		return true
	}
	return false
}

// FinalPage возвращает последнюю посещенную страницу (для телеметрии и возобновления)
func (c *PageCursor) FinalPage() int { return c.lastVisited }

// ObserveTotal фиксирует заявленное количество объявлений с первой страницы.
// Неразбираемое значение (totalItems <= 0) деградирует до одной страницы:
// прогон все равно обойдет страницу 1 (fail-soft, а не fail-fast).
func (c *PageCursor) ObserveTotal(totalItems int) {
	if c.totalPages != nil || c.source.Strategy != StrategyDeclaredCount {
		return
	}
	pages := 1
	if totalItems > 0 && c.source.PageSize > 0 {
		pages = (totalItems + c.source.PageSize - 1) / c.source.PageSize
	}
	c.totalPages = &pages
}

// TotalPages возвращает текущую оценку (nil, если неизвестна)
func (c *PageCursor) TotalPages() *int { return c.totalPages }

// AdvanceHasLinks: страница успешно получена и содержала ссылки
func (c *PageCursor) AdvanceHasLinks() {
	c.lastVisited = c.page
	c.page++
}

// AdvanceEmpty: страница успешно получена, но ссылок нет.
// Для сентинельной стратегии это конец выдачи; страница не считается
// продуктивной, но считается посещенной. Для заявленного количества
// пустая страница внутри диапазона не завершает обход.
func (c *PageCursor) AdvanceEmpty() {
	c.lastVisited = c.page
	if c.source.Strategy == StrategyEmptySentinel {
		c.done = true
		return
	}
	c.page++
}

// AdvanceNotFound: страницы не существует - обход закончен при любой стратегии
func (c *PageCursor) AdvanceNotFound() {
	c.lastVisited = c.page
	c.done = true
}

// AdvanceFailed: запрос страницы окончательно не удался. Ошибка не должна
// молча завершать пагинацию (это не "нет результатов"), поэтому просто
// переходим к следующей странице; потолок MaxPages/окно ограничивают обход.
func (c *PageCursor) AdvanceFailed() {
	c.lastVisited = c.page
	c.page++
}
