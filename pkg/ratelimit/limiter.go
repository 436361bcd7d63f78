// Package ratelimit ограничивает частоту исходящих запросов к внешним
// хостам: между двумя запросами к одному хосту выдерживается минимальный
// интервал плюс случайный джиттер. Разные хосты не влияют друг на друга.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// HostLimiter - потокобезопасный ограничитель частоты по хостам
type HostLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	maxJitter   time.Duration
	nextAllowed map[string]time.Time
	rnd         *rand.Rand
}

// NewHostLimiter создает ограничитель. minInterval - минимальная пауза
// между запросами к одному хосту, maxJitter - верхняя граница случайной
// добавки (0 - без джиттера).
func NewHostLimiter(minInterval, maxJitter time.Duration) *HostLimiter {
	return &HostLimiter{
		minInterval: minInterval,
		maxJitter:   maxJitter,
		nextAllowed: make(map[string]time.Time),
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait блокируется, пока не наступит разрешенный момент запроса к хосту,
// и бронирует следующий слот. Возвращает ошибку только при отмене контекста.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	l.mu.Lock()
	now := time.Now()

	at, ok := l.nextAllowed[host]
	if !ok || at.Before(now) {
		at = now
	}

	// Бронируем слот для следующего запроса еще до сна, чтобы
	// конкурирующие горутины не получили один и тот же момент
	l.nextAllowed[host] = at.Add(l.interval())
	l.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *HostLimiter) interval() time.Duration {
	d := l.minInterval
	if l.maxJitter > 0 {
		d += time.Duration(l.rnd.Int63n(int64(l.maxJitter)))
	}
	return d
}
