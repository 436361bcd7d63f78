package usecase

import (
	"context"
	"fmt"
	"testing"

	"property-harvester-service/internal/core/domain"
	"property-harvester-service/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- фейковые порты ---

type fakeFetcher struct {
	pages    map[int]*port.PageLinks
	pageErrs map[int]error

	detailErrs map[string]error

	fetchedPages []int
	detailCalls  []string
}

func (f *fakeFetcher) FetchPageLinks(ctx context.Context, source domain.ListingSource, page int) (*port.PageLinks, error) {
	f.fetchedPages = append(f.fetchedPages, page)
	if err, ok := f.pageErrs[page]; ok {
		return nil, err
	}
	if links, ok := f.pages[page]; ok {
		return links, nil
	}
	return &port.PageLinks{DeclaredTotal: -1}, nil
}

func (f *fakeFetcher) FetchDetails(ctx context.Context, source domain.ListingSource, detailURL string) (*domain.Record, error) {
	f.detailCalls = append(f.detailCalls, detailURL)
	if err, ok := f.detailErrs[detailURL]; ok {
		return nil, err
	}
	rec := domain.NewRecord(detailURL)
	rec.Values["title"] = "stub"
	return rec, nil
}

type fakeGeocoder struct {
	points map[string]*port.GeoPoint
	calls  []string
}

func (g *fakeGeocoder) Resolve(ctx context.Context, address string) *port.GeoPoint {
	g.calls = append(g.calls, address)
	return g.points[address]
}

type fakeSink struct {
	records    []*domain.Record
	flushCalls int
}

func (s *fakeSink) Append(record *domain.Record) { s.records = append(s.records, record) }

func (s *fakeSink) Flush(ctx context.Context) ([]string, error) {
	s.flushCalls++
	return []string{"memory://artifact"}, nil
}

func (s *fakeSink) Count() int { return len(s.records) }

type fakeSinkFactory struct {
	sink *fakeSink
}

func (f *fakeSinkFactory) NewSink(source domain.ListingSource) port.RecordSinkPort { return f.sink }

// --- вспомогательные конструкторы ---

func declaredSource() domain.ListingSource {
	return domain.ListingSource{
		Name:         "demo-declared",
		BaseURL:      "https://demo.example/list",
		PageParam:    "page",
		PageSize:     20,
		Strategy:     domain.StrategyDeclaredCount,
		LinkSelector: "a.item",
	}
}

func sentinelSource() domain.ListingSource {
	return domain.ListingSource{
		Name:         "demo-sentinel",
		BaseURL:      "https://demo.example/list",
		PageParam:    "page",
		Strategy:     domain.StrategyEmptySentinel,
		LinkSelector: "a.item",
	}
}

func pageOfLinks(page, count, declaredTotal int) *port.PageLinks {
	links := make([]string, 0, count)
	for i := 0; i < count; i++ {
		links = append(links, fmt.Sprintf("https://demo.example/item/p%d-%d", page, i))
	}
	return &port.PageLinks{Links: links, DeclaredTotal: declaredTotal}
}

func newHarvestUC(fetcher *fakeFetcher, sink *fakeSink) *HarvestSourceUseCase {
	processUC := NewProcessLinkUseCase(fetcher, nil)
	return NewHarvestSourceUseCase(fetcher, processUC, &fakeSinkFactory{sink: sink})
}

// --- тесты ---

// 45 объявлений при размере страницы 20 - это страницы 1, 2 и 3, без четвертой
func TestHarvestSource_DeclaredCountVisitsExactPages(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			1: pageOfLinks(1, 20, 45),
			2: pageOfLinks(2, 20, -1),
			3: pageOfLinks(3, 5, -1),
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	summary, err := uc.Execute(context.Background(), declaredSource())

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, fetcher.fetchedPages)
	assert.Equal(t, 45, summary.Records)
	assert.Equal(t, 3, summary.FinalPage)
}

// Неразобранное заявленное количество деградирует до одной страницы,
// а не до обхода до самого потолка
func TestHarvestSource_UnparsableDeclaredTotalFallsBackToOnePage(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			1: pageOfLinks(1, 20, -1),
			2: pageOfLinks(2, 20, -1),
			3: pageOfLinks(3, 20, -1),
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	source := declaredSource()
	source.MaxPages = 5

	summary, err := uc.Execute(context.Background(), source)

	require.NoError(t, err)
	assert.Equal(t, []int{1}, fetcher.fetchedPages, "only the first page is attempted")
	assert.Equal(t, 20, summary.Records)
	assert.Equal(t, 1, summary.FinalPage)
}

func TestHarvestSource_EmptySentinelStopsAtFirstEmptyPage(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			1: pageOfLinks(1, 3, -1),
			2: pageOfLinks(2, 3, -1),
			3: {DeclaredTotal: -1}, // пустая страница - конец выдачи
			4: pageOfLinks(4, 3, -1),
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	summary, err := uc.Execute(context.Background(), sentinelSource())

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, fetcher.fetchedPages, "page 4 must never be requested")
	assert.Equal(t, 6, summary.Records)
	assert.Equal(t, 3, summary.FinalPage)
}

func TestHarvestSource_DuplicateLinksProcessedOnce(t *testing.T) {
	shared := "https://demo.example/item/promoted"
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			1: {Links: []string{shared, "https://demo.example/item/a"}, DeclaredTotal: -1},
			2: {Links: []string{shared, shared, "https://demo.example/item/b"}, DeclaredTotal: -1},
			3: {DeclaredTotal: -1},
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	summary, err := uc.Execute(context.Background(), sentinelSource())

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Records, "the promoted ad must be harvested exactly once")
	assert.Len(t, fetcher.detailCalls, 3)
}

// Отсутствие обязательного поля у одной записи не трогает остальные девять
func TestHarvestSource_MissingRequiredFieldSkipsOnlyThatRecord(t *testing.T) {
	broken := "https://demo.example/item/p1-4"
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			1: pageOfLinks(1, 10, -1),
			2: {DeclaredTotal: -1},
		},
		detailErrs: map[string]error{
			broken: &domain.RecordError{Field: "price", URL: broken},
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	summary, err := uc.Execute(context.Background(), sentinelSource())

	require.NoError(t, err)
	assert.Equal(t, 9, summary.Records)
	assert.Equal(t, 1, summary.SkippedURLs)
	assert.Equal(t, 0, summary.FailedPages)
}

// Окончательный сбой страницы - это не "нет результатов": обход продолжается
func TestHarvestSource_FailedPageDoesNotEndPagination(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			1: pageOfLinks(1, 20, 45),
			3: pageOfLinks(3, 5, -1),
		},
		pageErrs: map[int]error{
			2: &domain.FetchError{Kind: domain.FetchExhausted, URL: "https://demo.example/list?page=2", Status: 503},
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	summary, err := uc.Execute(context.Background(), declaredSource())

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, fetcher.fetchedPages)
	assert.Equal(t, 25, summary.Records)
	assert.Equal(t, 1, summary.FailedPages)
}

func TestHarvestSource_NotFoundEndsPagination(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			1: pageOfLinks(1, 3, -1),
		},
		pageErrs: map[int]error{
			2: &domain.FetchError{Kind: domain.FetchNotFound, URL: "https://demo.example/list?page=2", Status: 404},
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	summary, err := uc.Execute(context.Background(), sentinelSource())

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, fetcher.fetchedPages)
	assert.Equal(t, 0, summary.FailedPages, "a missing page is an end signal, not a failure")
	assert.Equal(t, 2, summary.FinalPage)
}

func TestHarvestSource_MaxPagesCapsTheRun(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			1: pageOfLinks(1, 3, -1),
			2: pageOfLinks(2, 3, -1),
			3: pageOfLinks(3, 3, -1),
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	source := sentinelSource()
	source.MaxPages = 2

	summary, err := uc.Execute(context.Background(), source)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, fetcher.fetchedPages)
	assert.Equal(t, 6, summary.Records)
}

func TestHarvestSource_PageWindowOverridesNaturalEnd(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			5: pageOfLinks(5, 2, -1),
			6: pageOfLinks(6, 2, -1),
			7: pageOfLinks(7, 2, -1),
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	source := sentinelSource()
	source.Window = &domain.PageWindow{StartPage: 5, EndPage: 6}

	summary, err := uc.Execute(context.Background(), source)

	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, fetcher.fetchedPages)
	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, 6, summary.FinalPage)
}

// Невалидная конфигурация прерывает прогон, но пустой артефакт все равно создается
func TestHarvestSource_InvalidSourceAbortsButStillFlushes(t *testing.T) {
	fetcher := &fakeFetcher{}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	source := declaredSource()
	source.BaseURL = ""

	summary, err := uc.Execute(context.Background(), source)

	var abortErr *domain.RunAbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Empty(t, fetcher.fetchedPages, "no network activity on invalid config")
	assert.Equal(t, 1, sink.flushCalls)
	assert.Equal(t, 0, summary.Records)
	assert.Equal(t, []string{"memory://artifact"}, summary.Artifacts)
}

func TestHarvestSource_CancelledContextFlushesPartialResult(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int]*port.PageLinks{
			1: pageOfLinks(1, 3, -1),
		},
	}
	sink := &fakeSink{}
	uc := newHarvestUC(fetcher, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := uc.Execute(ctx, sentinelSource())

	var abortErr *domain.RunAbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, 1, sink.flushCalls, "partial result must still be flushed")
	assert.Equal(t, 0, summary.Records)
}
