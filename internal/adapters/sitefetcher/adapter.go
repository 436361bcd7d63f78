package sitefetcher

import (
	"fmt"
	"time"

	"property-harvester-service/pkg/ratelimit"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// Config - сетевое поведение адаптера
type Config struct {
	// MaxAttempts - потолок попыток для временных ошибок (сеть, 5xx).
	// 404/410 и прочие окончательные статусы не повторяются никогда.
	MaxAttempts int
	// RetryBaseDelay - базовая задержка перед повтором; удваивается с каждой попыткой
	RetryBaseDelay time.Duration

	RequestTimeout time.Duration

	// MinHostInterval/HostJitter - пауза между любыми двумя запросами к одному хосту
	MinHostInterval time.Duration
	HostJitter      time.Duration

	Parallelism int
}

// SiteFetcherAdapter отвечает за все взаимодействия с целевыми сайтами
type SiteFetcherAdapter struct {
	// родительский коллектор, который разделяет настройки между клонами
	collector *colly.Collector
	limiter   *ratelimit.HostLimiter
	cfg       Config
}

// NewSiteFetcherAdapter - конструктор
func NewSiteFetcherAdapter(cfg Config) (*SiteFetcherAdapter, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}

	// AllowURLRevisit обязателен: повтор после временной ошибки - это
	// запрос того же URL еще раз
	c := colly.NewCollector(colly.AllowURLRevisit(), colly.IgnoreRobotsTxt())

	if cfg.RequestTimeout > 0 {
		c.SetRequestTimeout(cfg.RequestTimeout)
	}

	// Эти правила наследуются всеми клонами коллектора
	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	})
	if err != nil {
		return nil, fmt.Errorf("SiteFetcherAdapter: failed to set limit rule: %w", err)
	}

	extensions.RandomUserAgent(c) // На каждый запрос подставляется User-Agent реального браузера
	extensions.Referer(c)         // Автоматически подставляет заголовок Referer, имитируя навигацию

	return &SiteFetcherAdapter{
		collector: c,
		limiter:   ratelimit.NewHostLimiter(cfg.MinHostInterval, cfg.HostJitter),
		cfg:       cfg,
	}, nil
}
