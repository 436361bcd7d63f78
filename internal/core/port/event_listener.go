package port

import "context"

// EventListenerPort - входящий адаптер, который слушает внешние события
// и вызывает ядро приложения
type EventListenerPort interface {
	Start(ctx context.Context) error
	Close() error
}
