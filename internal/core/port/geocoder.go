package port

import "context"

// GeoPoint - координаты, полученные от геокодера
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// GeocoderPort разрешает свободный текстовый адрес в координаты.
// Геокодирование - best-effort: любой сбой деградирует до nil,
// никогда не прерывая ни запись, ни прогон.
type GeocoderPort interface {
	Resolve(ctx context.Context, address string) *GeoPoint
}
