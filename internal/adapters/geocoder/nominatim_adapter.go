package geocoder

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"property-harvester-service/internal/contextkeys"
	"property-harvester-service/internal/core/port"
	"property-harvester-service/pkg/ratelimit"

	"github.com/go-resty/resty/v2"
)

// Config - настройки геокодера
type Config struct {
	// BaseURL - endpoint поиска (Nominatim-совместимый API)
	BaseURL string
	// UserAgent обязателен: публичный Nominatim отклоняет анонимные клиенты
	UserAgent string
	Email     string

	// MaxAttempts - потолок попыток на один адрес
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration

	// MinInterval - пауза между запросами: публичный Nominatim требует
	// не чаще одного запроса в секунду
	MinInterval time.Duration
}

// NominatimAdapter разрешает адреса в координаты через Nominatim-совместимый
// API. Любой сбой деградирует до nil: обогащение никогда не роняет запись.
type NominatimAdapter struct {
	client  *resty.Client
	limiter *ratelimit.HostLimiter
	host    string
	cfg     Config

	// кэш на время жизни процесса: один и тот же адрес часто встречается
	// у многих объявлений одного дома
	mu    sync.Mutex
	cache map[string]*port.GeoPoint
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// NewNominatimAdapter - конструктор
func NewNominatimAdapter(cfg Config) (*NominatimAdapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nominatim.openstreetmap.org/search"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	if cfg.RequestTimeout > 0 {
		client.SetTimeout(cfg.RequestTimeout)
	}
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	client.SetHeader("Accept-Language", "en")
	if cfg.Email != "" {
		client.SetHeader("From", cfg.Email)
	}

	return &NominatimAdapter{
		client:  client,
		limiter: ratelimit.NewHostLimiter(cfg.MinInterval, 0),
		host:    parsed.Host,
		cfg:     cfg,
		cache:   make(map[string]*port.GeoPoint),
	}, nil
}

// isPlaceholderAddress отсекает пустые и заглушечные адреса: значение-умолчание
// необязательного поля не стоит сетевой квоты
func isPlaceholderAddress(address string) bool {
	switch strings.TrimSpace(address) {
	case "", "-", "N/A":
		return true
	}
	return false
}

// Resolve выполняет геокодирование с ограниченными повторами.
// Пустой или заглушечный адрес не тратит сетевую квоту вообще.
func (a *NominatimAdapter) Resolve(ctx context.Context, address string) *port.GeoPoint {
	logger := contextkeys.LoggerFromContext(ctx)
	geoLogger := logger.WithFields(port.Fields{"component": "NominatimAdapter"})

	if isPlaceholderAddress(address) {
		return nil
	}

	a.mu.Lock()
	if point, ok := a.cache[address]; ok {
		a.mu.Unlock()
		return point
	}
	a.mu.Unlock()

	var point *port.GeoPoint

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		if err := a.limiter.Wait(ctx, a.host); err != nil {
			return nil
		}

		resolved, retryable, err := a.resolveOnce(ctx, address)
		if err == nil {
			point = resolved
			break
		}

		geoLogger.Warn("Geocoding attempt failed", port.Fields{
			"address": address,
			"attempt": attempt,
			"error":   err.Error(),
		})

		if !retryable || attempt == a.cfg.MaxAttempts {
			geoLogger.Warn("Address was not geocoded, record keeps empty coordinates", port.Fields{
				"address":  address,
				"attempts": attempt,
			})
			return nil
		}

		timer := time.NewTimer(a.cfg.RetryBaseDelay << (attempt - 1))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}

	// Кэшируем и промахи (point == nil): адрес, который геокодер не знает,
	// не станет известным через пять объявлений
	a.mu.Lock()
	a.cache[address] = point
	a.mu.Unlock()

	return point
}

// resolveOnce - ровно один запрос к API. retryable=false для ответов,
// при которых повтор не имеет смысла (адрес не найден, неразбираемый ответ).
func (a *NominatimAdapter) resolveOnce(ctx context.Context, address string) (*port.GeoPoint, bool, error) {
	var results []nominatimResult

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "json",
			"limit":  "1",
			"q":      address,
		}).
		SetResult(&results).
		Get(a.cfg.BaseURL)

	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode() != http.StatusOK {
		// Повторяем только перегрузку и сбои сервера; 4xx вроде 400/403
		// означают, что сам запрос плохой, и повтор его не исправит
		retryable := resp.StatusCode() == http.StatusTooManyRequests ||
			resp.StatusCode() >= http.StatusInternalServerError
		return nil, retryable, &statusError{status: resp.StatusCode()}
	}

	// Пустой список - это успешный ответ "адрес не найден", не ошибка
	if len(results) == 0 {
		return nil, false, nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, false, &badPayloadError{lat: results[0].Lat, lon: results[0].Lon}
	}

	return &port.GeoPoint{Latitude: lat, Longitude: lon}, false, nil
}

type statusError struct{ status int }

func (e *statusError) Error() string {
	return "geocoder responded with status " + strconv.Itoa(e.status)
}

type badPayloadError struct{ lat, lon string }

func (e *badPayloadError) Error() string {
	return "geocoder returned unparsable coordinates lat=" + e.lat + " lon=" + e.lon
}
