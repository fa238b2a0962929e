// Package storage persists normalized news items into Postgres. The
// aa_news table carries a unique constraint on source_id, so concurrent
// batch runs cannot double-insert even though the gate's existence check
// and write are separate statements.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"aafeed/internal/domain"
	"aafeed/internal/ports"
)

const newsTable = "aa_news"

// uniqueViolation is the Postgres error code for a unique-constraint hit.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS aa_news (
    id          TEXT PRIMARY KEY,
    source_id   TEXT NOT NULL UNIQUE,
    title       TEXT NOT NULL,
    content     TEXT NOT NULL,
    summary     TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL,
    media_urls  TEXT[] NOT NULL DEFAULT '{}',
    priority    TEXT NOT NULL DEFAULT 'routine',
    language    TEXT NOT NULL DEFAULT 'tr',
    group_id    TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'draft',
    tags        TEXT[] NOT NULL DEFAULT '{}',
    ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresRepository implements ports.NewsRepository on Postgres.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.NewsRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the news table and its unique source_id constraint.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ExistingIDs returns the subset of sourceIDs already stored.
func (r *PostgresRepository) ExistingIDs(ctx context.Context, sourceIDs []string) (map[string]bool, error) {
	if len(sourceIDs) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.builder.
		Select("source_id").
		From(newsTable).
		Where(sq.Eq{"source_id": sourceIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build existing query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// Exists checks a single source ID.
func (r *PostgresRepository) Exists(ctx context.Context, sourceID string) (bool, error) {
	query, args, err := r.builder.
		Select("1").
		From(newsTable).
		Where(sq.Eq{"source_id": sourceID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return true, nil
}

// Insert writes a new record, first write wins. The store refuses empty
// required fields and names them in the returned error instead of silently
// dropping the item.
func (r *PostgresRepository) Insert(ctx context.Context, item domain.NormalizedNewsItem) error {
	if fields := missingFields(item); len(fields) > 0 {
		return &domain.UpsertError{Fields: fields}
	}

	query, args, err := r.builder.
		Insert(newsTable).
		Columns("id", "source_id", "title", "content", "summary", "category",
			"media_urls", "priority", "language", "group_id", "status", "tags", "ingested_at").
		Values(item.ID, item.SourceID, item.Title, item.Content, item.Summary, item.Category,
			pq.Array(item.MediaURLs), item.Priority, item.Language, item.GroupID,
			string(item.Status), pq.Array(item.Tags), item.IngestedAt).
		Suffix("ON CONFLICT (source_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert news item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrDuplicate
	}

	return nil
}

// ApplyEnrichment overwrites title, content, and tags of a stored record.
func (r *PostgresRepository) ApplyEnrichment(ctx context.Context, sourceID string, e domain.Enrichment) error {
	update := r.builder.Update(newsTable).Where(sq.Eq{"source_id": sourceID})

	if e.Title != "" {
		update = update.Set("title", e.Title)
	}
	if e.Content != "" {
		update = update.Set("content", e.Content)
	}
	if len(e.Tags) > 0 {
		update = update.Set("tags", pq.Array(e.Tags))
	}
	if e.Title == "" && e.Content == "" && len(e.Tags) == 0 {
		return nil
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build enrichment update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply enrichment %s: %w", sourceID, err)
	}
	return nil
}

// missingFields lists required fields that resolved to an empty value.
// Upstream sanitizing should make this unreachable; the check exists so a
// rejected write always names its offenders.
func missingFields(item domain.NormalizedNewsItem) []string {
	var fields []string
	if item.ID == "" {
		fields = append(fields, "id")
	}
	if item.SourceID == "" {
		fields = append(fields, "sourceId")
	}
	if item.Category == "" {
		fields = append(fields, "category")
	}
	if item.Content == "" {
		fields = append(fields, "content")
	}
	if item.Priority == "" {
		fields = append(fields, "priority")
	}
	if item.Language == "" {
		fields = append(fields, "language")
	}
	return fields
}
