package domain

// SeenSet - множество уже встреченных URL детальных страниц в рамках одного
// прогона. Страницы списка могут легитимно повторять объявления (например,
// продвигаемые), поэтому повторный URL не должен приводить к повторному
// запросу. Только добавление, между прогонами не сохраняется.
type SeenSet struct {
	seen  map[string]struct{}
	order []string
}

func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{})}
}

// Add возвращает true, если URL встречен впервые.
// URL должен быть абсолютизирован до вызова; сравнение - точное строковое.
func (s *SeenSet) Add(url string) bool {
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Len возвращает количество уникальных URL
func (s *SeenSet) Len() int { return len(s.seen) }

// URLs возвращает URL в порядке обнаружения
func (s *SeenSet) URLs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
