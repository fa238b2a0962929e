package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aafeed/internal/domain"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func validItem() domain.NormalizedNewsItem {
	return domain.NormalizedNewsItem{
		ID:         "aa:text:1",
		SourceID:   "aa:text:1",
		Title:      "Test Başlık",
		Content:    "Birinci paragraf.\n\nİkinci paragraf.",
		Summary:    "Birinci paragraf.",
		Category:   "general",
		MediaURLs:  []string{},
		Priority:   "routine",
		Language:   "tr",
		Status:     domain.StatusDraft,
		Tags:       []string{},
		IngestedAt: time.Date(2026, time.August, 28, 10, 0, 0, 0, time.UTC),
	}
}

func TestExists(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	query := regexp.QuoteMeta("SELECT 1 FROM aa_news WHERE source_id = $1 LIMIT 1")

	mock.ExpectQuery(query).
		WithArgs("aa:text:1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "aa:text:1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(query).
		WithArgs("aa:text:2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.Exists(context.Background(), "aa:text:2")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingIDs(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT source_id FROM aa_news WHERE source_id IN ($1,$2)")).
		WithArgs("aa:text:1", "aa:text:2").
		WillReturnRows(sqlmock.NewRows([]string{"source_id"}).AddRow("aa:text:2"))

	existing, err := repo.ExistingIDs(context.Background(), []string{"aa:text:1", "aa:text:2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"aa:text:2": true}, existing)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingIDsEmptyInput(t *testing.T) {
	t.Parallel()

	repo, _ := newMockRepo(t)

	existing, err := repo.ExistingIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
}

func TestInsert(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO aa_news")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), validItem()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertConflictReportsDuplicate(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	// ON CONFLICT DO NOTHING: the losing write affects zero rows.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO aa_news")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Insert(context.Background(), validItem())
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestInsertRefusesMissingFields(t *testing.T) {
	t.Parallel()

	repo, _ := newMockRepo(t)

	item := validItem()
	item.Category = ""
	item.Content = ""

	err := repo.Insert(context.Background(), item)

	var upsertErr *domain.UpsertError
	require.ErrorAs(t, err, &upsertErr)
	assert.Contains(t, upsertErr.Fields, "category")
	assert.Contains(t, upsertErr.Fields, "content")
}

func TestApplyEnrichment(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE aa_news SET title = $1, content = $2, tags = $3 WHERE source_id = $4")).
		WithArgs("Yeni Başlık", "Yeni içerik", sqlmock.AnyArg(), "aa:text:1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyEnrichment(context.Background(), "aa:text:1", domain.Enrichment{
		Title:   "Yeni Başlık",
		Content: "Yeni içerik",
		Tags:    []string{"ekonomi"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyEnrichmentNoop(t *testing.T) {
	t.Parallel()

	repo, _ := newMockRepo(t)

	// Nothing to set; no statement must reach the database.
	err := repo.ApplyEnrichment(context.Background(), "aa:text:1", domain.Enrichment{})
	require.NoError(t, err)
}
