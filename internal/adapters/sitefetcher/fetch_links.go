package sitefetcher

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"property-harvester-service/internal/contextkeys"
	"property-harvester-service/internal/core/domain"
	"property-harvester-service/internal/core/port"

	"github.com/PuerkitoBio/goquery"
)

// buildPageURL собирает URL страницы списка: базовый URL источника
// плюс query-параметр с номером страницы
func buildPageURL(source domain.ListingSource, page int) (string, error) {
	u, err := url.Parse(source.BaseURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	pageParam := source.PageParam
	if pageParam == "" {
		pageParam = "page"
	}
	q.Set(pageParam, strconv.Itoa(page))

	u.RawQuery = q.Encode()
	return u.String(), nil
}

var digitsRe = regexp.MustCompile(`\d[\d\s.,]*`)

// parseDeclaredTotal достает число объявлений из текста вида
// "1 234 объявления" / "Found 45 results". -1, если числа нет.
func parseDeclaredTotal(text string) int {
	match := digitsRe.FindString(text)
	if match == "" {
		return -1
	}
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, match)

	total, err := strconv.Atoi(cleaned)
	if err != nil {
		return -1
	}
	return total
}

// FetchPageLinks загружает страницу списка и собирает абсолютные URL
// детальных страниц в порядке появления
func (a *SiteFetcherAdapter) FetchPageLinks(ctx context.Context, source domain.ListingSource, page int) (*port.PageLinks, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	fetchLinksLogger := logger.WithFields(port.Fields{"component": "SiteFetcherAdapter(FetchPageLinks)"})

	targetURL, err := buildPageURL(source, page)
	if err != nil {
		return nil, fmt.Errorf("site fetcher: failed to build URL for source '%s' page %d: %w", source.Name, page, err)
	}

	doc, fetchErr := a.fetchDocument(ctx, targetURL, fetchLinksLogger)
	if fetchErr != nil {
		return nil, fetchErr
	}

	base, _ := url.Parse(targetURL)

	result := &port.PageLinks{DeclaredTotal: -1}

	doc.Find(source.LinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		absolute := absolutizeURL(base, href)
		if absolute == "" {
			return
		}
		result.Links = append(result.Links, absolute)
	})

	// Заявленное количество объявлений нужно только стратегии declared_count
	if source.Strategy == domain.StrategyDeclaredCount && source.TotalCountRule != nil {
		countText := extractByRule(doc.Selection, *source.TotalCountRule)
		result.DeclaredTotal = parseDeclaredTotal(countText)
		if result.DeclaredTotal < 0 {
			fetchLinksLogger.Warn("Could not parse declared total from page", port.Fields{
				"url":      targetURL,
				"selector": source.TotalCountRule.Selector,
			})
		}
	}

	fetchLinksLogger.Debug("Finished fetching links for page", port.Fields{
		"url":            targetURL,
		"links_fetched":  len(result.Links),
		"declared_total": result.DeclaredTotal,
	})

	return result, nil
}

// absolutizeURL разворачивает относительный href относительно страницы списка.
// Дедупликация выше по стеку сравнивает строки посимвольно, поэтому
// абсолютизация обязана быть детерминированной.
func absolutizeURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
