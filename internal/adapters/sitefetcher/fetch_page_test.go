package sitefetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"property-harvester-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAdapter(t *testing.T) *SiteFetcherAdapter {
	t.Helper()
	adapter, err := NewSiteFetcherAdapter(Config{
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return adapter
}

func listingSourceFor(serverURL string) domain.ListingSource {
	return domain.ListingSource{
		Name:         "test-source",
		BaseURL:      serverURL + "/list",
		PageParam:    "page",
		PageSize:     20,
		Strategy:     domain.StrategyDeclaredCount,
		LinkSelector: "a.listing",
		TotalCountRule: &domain.ExtractRule{
			Selector: ".results-count",
		},
	}
}

// Временная ошибка повторяется ровно до потолка попыток, затем Exhausted
func TestFetchPageLinks_ServerErrorExhaustsRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/list" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := testAdapter(t)

	_, err := adapter.FetchPageLinks(context.Background(), listingSourceFor(server.URL), 1)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.FetchExhausted, fetchErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "exactly MaxAttempts requests must be made")
}

// 404 - не сбой, а информация: ровно одна попытка и отдельный исход
func TestFetchPageLinks_NotFoundIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := testAdapter(t)

	_, err := adapter.FetchPageLinks(context.Background(), listingSourceFor(server.URL), 7)

	require.True(t, domain.IsNotFound(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchPageLinks_RecoversAfterTransientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`<html><body>
			<span class="results-count">Found 45 listings</span>
			<a class="listing" href="/item/1">one</a>
			<a class="listing" href="/item/2">two</a>
		</body></html>`))
	}))
	defer server.Close()

	adapter := testAdapter(t)

	links, err := adapter.FetchPageLinks(context.Background(), listingSourceFor(server.URL), 1)

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, 45, links.DeclaredTotal)
	assert.Equal(t, []string{
		server.URL + "/item/1",
		server.URL + "/item/2",
	}, links.Links)
}

// Относительные href разворачиваются в абсолютные, мусорные - отбрасываются
func TestFetchPageLinks_AbsolutizesHrefs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a class="listing" href="/item/10">rel</a>
			<a class="listing" href="item/11">rel-no-slash</a>
			<a class="listing" href="https://other.example/item/12">abs</a>
			<a class="listing" href="#">anchor</a>
			<a class="listing">no href</a>
		</body></html>`))
	}))
	defer server.Close()

	adapter := testAdapter(t)
	source := listingSourceFor(server.URL)
	source.Strategy = domain.StrategyEmptySentinel
	source.TotalCountRule = nil

	links, err := adapter.FetchPageLinks(context.Background(), source, 1)

	require.NoError(t, err)
	assert.Equal(t, []string{
		server.URL + "/item/10",
		server.URL + "/item/11",
		"https://other.example/item/12",
	}, links.Links)
	assert.Equal(t, -1, links.DeclaredTotal)
}

// Пустая, но успешно полученная страница - валидный результат с нулем ссылок
func TestFetchPageLinks_EmptyPageIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="empty">No results</div></body></html>`))
	}))
	defer server.Close()

	adapter := testAdapter(t)
	source := listingSourceFor(server.URL)
	source.Strategy = domain.StrategyEmptySentinel
	source.TotalCountRule = nil

	links, err := adapter.FetchPageLinks(context.Background(), source, 3)

	require.NoError(t, err)
	assert.Empty(t, links.Links)
}

func TestFetchPageLinks_OtherClientErrorIsTerminal(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	adapter := testAdapter(t)

	_, err := adapter.FetchPageLinks(context.Background(), listingSourceFor(server.URL), 1)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.FetchTerminal, fetchErr.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "terminal status must not be retried")
}

func TestBuildPageURL(t *testing.T) {
	source := domain.ListingSource{
		BaseURL:   "https://site.example/sale?business_type=sale",
		PageParam: "page",
	}

	u, err := buildPageURL(source, 3)

	require.NoError(t, err)
	assert.Equal(t, "https://site.example/sale?business_type=sale&page=3", u)
}

func TestParseDeclaredTotal(t *testing.T) {
	assert.Equal(t, 45, parseDeclaredTotal("Found 45 listings"))
	assert.Equal(t, 1234, parseDeclaredTotal("1 234 объявления"))
	assert.Equal(t, 0, parseDeclaredTotal("0 results"))
	assert.Equal(t, -1, parseDeclaredTotal("no digits here"))
	assert.Equal(t, -1, parseDeclaredTotal(""))
}
