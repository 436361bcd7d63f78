package port

import (
	"context"

	"property-harvester-service/internal/core/domain"
)

// RecordSinkPort накапливает записи прогона и выгружает их в табличный
// артефакт. Append не может упасть из-за содержимого записи; Flush обязан
// успешно отработать и для пустого прогона (пустой, но валидный артефакт),
// и для записей с разным набором опциональных полей. Повторный Flush с тем
// же накопленным результатом дает тот же состав строк.
type RecordSinkPort interface {
	Append(record *domain.Record)

	// Flush возвращает пути (или иные идентификаторы) созданных артефактов
	Flush(ctx context.Context) ([]string, error)

	// Count возвращает количество накопленных записей
	Count() int
}

// RecordSinkFactoryPort создает свежий sink для каждого прогона источника:
// у каждого прогона свой артефакт и свой накопленный буфер
type RecordSinkFactoryPort interface {
	NewSink(source domain.ListingSource) RecordSinkPort
}
