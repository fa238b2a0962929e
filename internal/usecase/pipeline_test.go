package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aafeed/internal/aa"
	"aafeed/internal/domain"
	"aafeed/internal/taxonomy"
)

// fakeSource serves canned search results and documents.
type fakeSource struct {
	items     []domain.WireItem
	docs      map[string]string
	searchErr error
	docErrs   map[string]error
	docCalls  []string
}

func (s *fakeSource) Search(_ context.Context, _ domain.SearchFilter) ([]domain.WireItem, int, error) {
	if s.searchErr != nil {
		return nil, 0, s.searchErr
	}
	return s.items, len(s.items), nil
}

func (s *fakeSource) Document(_ context.Context, id string, _ domain.WireType) (string, error) {
	s.docCalls = append(s.docCalls, id)
	if err, ok := s.docErrs[id]; ok {
		return "", err
	}
	return s.docs[id], nil
}

type fakeEnricher struct {
	enrichment domain.Enrichment
	err        error
	calls      int
}

func (e *fakeEnricher) Enhance(_ context.Context, _ domain.NormalizedNewsItem) (domain.Enrichment, error) {
	e.calls++
	return e.enrichment, e.err
}

func newsmlBody(paragraphs ...string) string {
	body := "<contentSet><inlineXML><body>"
	for _, p := range paragraphs {
		body += "<p>" + p + "</p>"
	}
	return body + "</body></inlineXML></contentSet>"
}

func newTestPipeline(source *fakeSource, repo *fakeRepo, feed Feed, enricher *fakeEnricher) *Pipeline {
	deps := PipelineDeps{
		Source:     source,
		Repository: repo,
		Normalizer: taxonomy.New(nil, nil),
		Feeds:      []Feed{feed},
	}
	if enricher != nil {
		deps.Enricher = enricher
	}
	return NewPipeline(deps)
}

func TestProcessFeedInsertsAndCounts(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		items: []domain.WireItem{
			{ID: "aa:text:1", Type: domain.TypeText, Title: "Test Başlık"},
			{ID: "aa:text:2", Type: domain.TypeText, Title: "Ekonomi", CategoryCode: 3},
		},
		docs: map[string]string{
			"aa:text:1": newsmlBody("Birinci paragraf.", "İkinci paragraf."),
			"aa:text:2": newsmlBody("Faiz kararı açıklandı."),
		},
	}
	repo := newFakeRepo()
	feed := Feed{Name: "test", Status: domain.StatusDraft}

	summary, results, err := newTestPipeline(source, repo, feed, nil).ProcessFeed(context.Background(), feed, time.Now())
	require.NoError(t, err)

	assert.Equal(t, domain.BatchSummary{Found: 2, New: 2, Processed: 2, Errors: 0}, summary)
	require.Len(t, results, 2)
	assert.Equal(t, domain.OutcomeInserted, results[0].Outcome)
	assert.Equal(t, domain.OutcomeInserted, results[1].Outcome)

	first, ok := repo.stored("aa:text:1")
	require.True(t, ok)
	assert.Equal(t, "Birinci paragraf.\n\nİkinci paragraf.", first.Content)
	assert.Equal(t, taxonomy.DefaultCategory, first.Category)
	assert.Equal(t, domain.StatusDraft, first.Status)

	second, ok := repo.stored("aa:text:2")
	require.True(t, ok)
	assert.Equal(t, "ekonomi", second.Category)
}

func TestProcessFeedSkipsStoredItemsWithoutFetching(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		items: []domain.WireItem{
			{ID: "aa:text:1", Type: domain.TypeText, Title: "Eski"},
			{ID: "aa:text:2", Type: domain.TypeText, Title: "Yeni"},
		},
		docs: map[string]string{"aa:text:2": newsmlBody("Yeni içerik geldi.")},
	}
	repo := newFakeRepo()
	repo.items["aa:text:1"] = domain.NormalizedNewsItem{SourceID: "aa:text:1"}
	feed := Feed{Name: "test"}

	summary, results, err := newTestPipeline(source, repo, feed, nil).ProcessFeed(context.Background(), feed, time.Now())
	require.NoError(t, err)

	assert.Equal(t, domain.BatchSummary{Found: 2, New: 1, Processed: 1, Errors: 0}, summary)
	assert.Equal(t, domain.OutcomeSkippedDuplicate, results[0].Outcome)
	assert.Equal(t, []string{"aa:text:2"}, source.docCalls, "stored item must not burn a document fetch")
}

func TestProcessFeedBadItemDoesNotPoisonBatch(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		items: []domain.WireItem{
			{ID: "aa:text:1", Type: domain.TypeText, Title: "Bozuk"},
			{ID: "aa:text:2", Type: domain.TypeText, Title: "Sağlam"},
		},
		docs:    map[string]string{"aa:text:2": newsmlBody("İkinci haber sorunsuz.")},
		docErrs: map[string]error{"aa:text:1": &aa.FetchError{StatusCode: http.StatusGatewayTimeout, Endpoint: "/document"}},
	}
	repo := newFakeRepo()
	feed := Feed{Name: "test"}

	summary, results, err := newTestPipeline(source, repo, feed, nil).ProcessFeed(context.Background(), feed, time.Now())
	require.NoError(t, err)

	assert.Equal(t, domain.BatchSummary{Found: 2, New: 2, Processed: 1, Errors: 1}, summary)
	assert.Equal(t, domain.OutcomeFailed, results[0].Outcome)
	assert.Error(t, results[0].Err)
	assert.Equal(t, domain.OutcomeInserted, results[1].Outcome)
}

func TestProcessFeedDegradedItemStoresTitlePlaceholder(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		items: []domain.WireItem{{ID: "aa:text:1", Type: domain.TypeText, Title: "Yalnız Başlık"}},
		docs:  map[string]string{"aa:text:1": `<?xml version="1.0"?><newsItem/>`},
	}
	repo := newFakeRepo()
	feed := Feed{Name: "test"}

	summary, results, err := newTestPipeline(source, repo, feed, nil).ProcessFeed(context.Background(), feed, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	require.Len(t, results, 1)
	assert.True(t, results[0].Degraded)

	stored, ok := repo.stored("aa:text:1")
	require.True(t, ok)
	assert.Equal(t, "Yalnız Başlık", stored.Content)
	assert.NotEmpty(t, stored.Category, "store must never see an empty category")
}

func TestRunAbortsOnRejectedCredentials(t *testing.T) {
	t.Parallel()

	source := &fakeSource{searchErr: &aa.FetchError{StatusCode: http.StatusUnauthorized, Endpoint: "/search/"}}
	repo := newFakeRepo()
	feed := Feed{Name: "test"}

	_, err := newTestPipeline(source, repo, feed, nil).Run(context.Background(), time.Now())
	require.Error(t, err)

	var fetchErr *aa.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Unauthorized())
}

func TestRunContinuesPastFailedFeed(t *testing.T) {
	t.Parallel()

	failing := Feed{Name: "failing"}
	healthy := Feed{Name: "healthy"}

	source := &fakeSource{searchErr: errors.New("boom")}
	repo := newFakeRepo()

	pipeline := NewPipeline(PipelineDeps{
		Source:     source,
		Repository: repo,
		Normalizer: taxonomy.New(nil, nil),
		Feeds:      []Feed{failing, healthy},
	})

	_, err := pipeline.Run(context.Background(), time.Now())
	assert.NoError(t, err, "a non-auth feed failure must not abort the run")
}

func TestInsertedItemGetsEnriched(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		items: []domain.WireItem{{ID: "aa:text:1", Type: domain.TypeText, Title: "Başlık"}},
		docs:  map[string]string{"aa:text:1": newsmlBody("Zenginleştirilecek içerik.")},
	}
	repo := newFakeRepo()
	enricher := &fakeEnricher{enrichment: domain.Enrichment{Title: "Yeni Başlık", Tags: []string{"gundem"}}}
	feed := Feed{Name: "test"}

	_, _, err := newTestPipeline(source, repo, feed, enricher).ProcessFeed(context.Background(), feed, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, enricher.calls)
	assert.Equal(t, "Yeni Başlık", repo.enriched["aa:text:1"].Title)
}

func TestFailedEnrichmentLeavesItemStored(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		items: []domain.WireItem{{ID: "aa:text:1", Type: domain.TypeText, Title: "Başlık"}},
		docs:  map[string]string{"aa:text:1": newsmlBody("İçerik aynen kalmalı.")},
	}
	repo := newFakeRepo()
	enricher := &fakeEnricher{err: errors.New("model unavailable")}
	feed := Feed{Name: "test"}

	summary, _, err := newTestPipeline(source, repo, feed, enricher).ProcessFeed(context.Background(), feed, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	_, ok := repo.stored("aa:text:1")
	assert.True(t, ok)
	assert.Empty(t, repo.enriched)
}
