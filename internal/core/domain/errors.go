package domain

import (
	"errors"
	"fmt"
)

// FetchKind классифицирует исход сетевого запроса
type FetchKind string

const (
	// FetchTransient - временная ошибка (сеть, таймаут, 500/502/503/504);
	// повторяется внутри fetcher-а и наружу не выходит
	FetchTransient FetchKind = "transient"
	// FetchExhausted - попытки исчерпаны
	FetchExhausted FetchKind = "exhausted"
	// FetchNotFound - страница не существует (404/410). Отдельный исход:
	// пагинация должна отличать "страницы нет" от "временная ошибка"
	FetchNotFound FetchKind = "not_found"
	// FetchTerminal - любой другой не-2xx статус, повтор не имеет смысла
	FetchTerminal FetchKind = "terminal"
)

// FetchError - ошибка сетевого уровня с классификацией исхода
type FetchError struct {
	Kind   FetchKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound сообщает, был ли исход "страницы не существует"
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchNotFound
}

// RecordError - отсутствие обязательного поля при извлечении.
// Приводит к пропуску конкретного URL, но не прерывает прогон.
type RecordError struct {
	Field string
	URL   string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record from %s is missing required field '%s'", e.URL, e.Field)
}

// IsRecordError сообщает, является ли ошибка пропуском записи
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

// RunAbortError - проблема уровня конфигурации, обнаруженная до сетевой
// активности. Единственный класс, который останавливает прогон целиком;
// уже накопленные записи при этом все равно выгружаются.
type RunAbortError struct {
	Reason string
	Err    error
}

func NewRunAbort(reason string, err error) *RunAbortError {
	return &RunAbortError{Reason: reason, Err: err}
}

func (e *RunAbortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("run aborted: %s: %v", e.Reason, e.Err)
	}
	return "run aborted: " + e.Reason
}

func (e *RunAbortError) Unwrap() error { return e.Err }
