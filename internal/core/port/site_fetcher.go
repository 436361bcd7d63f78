package port

import (
	"context"

	"property-harvester-service/internal/core/domain"
)

// PageLinks - результат разбора одной страницы списка
type PageLinks struct {
	// Links - абсолютные URL детальных страниц в порядке появления на странице
	Links []string
	// DeclaredTotal - заявленное на странице общее количество объявлений;
	// -1, если источник его не сообщает или разобрать не удалось
	DeclaredTotal int
}

// SiteFetcherPort - все взаимодействия с целевым сайтом:
// устойчивая загрузка страниц, сбор ссылок и извлечение записей
type SiteFetcherPort interface {
	// FetchPageLinks загружает страницу списка с номером page и возвращает
	// собранные ссылки. Сетевые сбои приходят как *domain.FetchError.
	FetchPageLinks(ctx context.Context, source domain.ListingSource, page int) (*PageLinks, error)

	// FetchDetails загружает детальную страницу и применяет к ней набор
	// FieldSpec источника. Отсутствие обязательного поля возвращается как
	// *domain.RecordError, сетевые сбои - как *domain.FetchError.
	FetchDetails(ctx context.Context, source domain.ListingSource, detailURL string) (*domain.Record, error)
}
