package sitefetcher

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"time"

	"property-harvester-service/internal/core/domain"
	"property-harvester-service/internal/core/port"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// isTransientStatus: статусы, при которых повтор имеет смысл
func isTransientStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	}
	return false
}

// fetchDocument выполняет устойчивую загрузку одной страницы: пауза по хосту,
// ограниченные повторы для временных ошибок, классификация исхода.
// Все ошибки наружу - *domain.FetchError.
func (a *SiteFetcherAdapter) fetchDocument(ctx context.Context, targetURL string, logger port.LoggerPort) (*goquery.Document, error) {

	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchTerminal, URL: targetURL, Err: err}
	}

	var lastErr *domain.FetchError

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		if waitErr := a.limiter.Wait(ctx, parsed.Host); waitErr != nil {
			return nil, &domain.FetchError{Kind: domain.FetchTransient, URL: targetURL, Err: waitErr}
		}

		doc, fetchErr := a.fetchOnce(targetURL, logger, attempt)
		if fetchErr == nil {
			return doc, nil
		}

		// 404/410 и окончательные статусы не повторяем
		if fetchErr.Kind != domain.FetchTransient {
			return nil, fetchErr
		}
		lastErr = fetchErr

		if attempt == a.cfg.MaxAttempts {
			break
		}

		delay := a.cfg.RetryBaseDelay << (attempt - 1)
		logger.Warn("Transient fetch failure, retrying", port.Fields{
			"url":     targetURL,
			"attempt": attempt,
			"status":  fetchErr.Status,
			"delay":   delay.String(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, &domain.FetchError{Kind: domain.FetchTransient, URL: targetURL, Err: ctx.Err()}
		}
	}

	logger.Error("Fetch attempts exhausted", lastErr, port.Fields{
		"url":      targetURL,
		"attempts": a.cfg.MaxAttempts,
	})
	return nil, &domain.FetchError{
		Kind:   domain.FetchExhausted,
		URL:    targetURL,
		Status: lastErr.Status,
		Err:    lastErr,
	}
}

// fetchOnce - ровно один HTTP запрос через одноразовый клон коллектора.
// Клон наследует лимиты и заголовки родителя, но имеет свои обработчики.
func (a *SiteFetcherAdapter) fetchOnce(targetURL string, logger port.LoggerPort, attempt int) (*goquery.Document, *domain.FetchError) {

	collector := a.collector.Clone()

	var doc *goquery.Document
	var resultErr *domain.FetchError

	collector.OnRequest(func(r *colly.Request) {
		logger.Debug("Making request", port.Fields{
			"url":     r.URL.String(),
			"attempt": attempt,
		})
	})

	collector.OnResponse(func(r *colly.Response) {
		parsedDoc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if parseErr != nil {
			// Тело не разобралось как HTML - повторный запрос не поможет
			resultErr = &domain.FetchError{
				Kind:   domain.FetchTerminal,
				URL:    targetURL,
				Status: r.StatusCode,
				Err:    parseErr,
			}
			return
		}
		doc = parsedDoc
	})

	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}

		switch {
		case status == http.StatusNotFound || status == http.StatusGone:
			// Страницы нет - это информация, а не сбой
			resultErr = &domain.FetchError{Kind: domain.FetchNotFound, URL: targetURL, Status: status, Err: err}
		case status == 0 || isTransientStatus(status):
			resultErr = &domain.FetchError{Kind: domain.FetchTransient, URL: targetURL, Status: status, Err: err}
		default:
			resultErr = &domain.FetchError{Kind: domain.FetchTerminal, URL: targetURL, Status: status, Err: err}
		}
	})

	// Коллектор синхронный: для не-2xx ответов Visit возвращает ошибку уже
	// после того, как OnError классифицировал исход. Классификация главнее.
	visitErr := collector.Visit(targetURL)
	collector.Wait()

	if resultErr != nil {
		return nil, resultErr
	}
	if visitErr != nil {
		// Запрос не дошел до OnError (невалидный URL, запрет коллектора)
		return nil, &domain.FetchError{Kind: domain.FetchTerminal, URL: targetURL, Err: visitErr}
	}
	return doc, nil
}
