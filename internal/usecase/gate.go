package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"aafeed/internal/domain"
	"aafeed/internal/extract"
	"aafeed/internal/ports"
	"aafeed/internal/taxonomy"
)

// Gate is the dedup and upsert stage: the sole writer path into the news
// store. It checks existence by source ID, sanitizes every optional field
// to an explicit value, and performs a single conditional insert. First
// write wins; re-ingestion of a stored source ID is a no-op.
type Gate struct {
	repo   ports.NewsRepository
	logger *slog.Logger
}

// NewGate wires the repository into the gate.
func NewGate(repo ports.NewsRepository, logger *slog.Logger) *Gate {
	return &Gate{repo: repo, logger: logger}
}

// Upsert resolves one candidate to a terminal outcome. The store never sees
// an empty required field: sanitize rewrites them to explicit defaults first
// and the returned field list feeds the item result.
func (g *Gate) Upsert(ctx context.Context, item domain.NormalizedNewsItem) (domain.Outcome, []string, error) {
	item, defaulted := sanitize(item)

	if item.SourceID == "" {
		return domain.OutcomeFailed, defaulted, &domain.UpsertError{Fields: []string{"sourceId"}}
	}

	exists, err := g.repo.Exists(ctx, item.SourceID)
	if err != nil {
		return domain.OutcomeFailed, defaulted, fmt.Errorf("existence check %s: %w", item.SourceID, err)
	}
	if exists {
		return domain.OutcomeSkippedDuplicate, defaulted, nil
	}

	if err := g.repo.Insert(ctx, item); err != nil {
		// Two runs can race between check and write; the store's unique
		// constraint settles it and the loser reports a duplicate.
		if errors.Is(err, domain.ErrDuplicate) {
			return domain.OutcomeSkippedDuplicate, defaulted, nil
		}
		var upsertErr *domain.UpsertError
		if errors.As(err, &upsertErr) && g.logger != nil {
			g.logger.Error("store rejected write",
				"item", item.SourceID,
				"fields", strings.Join(upsertErr.Fields, ","))
		}
		return domain.OutcomeFailed, defaulted, fmt.Errorf("insert %s: %w", item.SourceID, err)
	}

	return domain.OutcomeInserted, defaulted, nil
}

// sanitize rewrites every absent optional field to an explicit default
// before the write and reports which fields it touched. The store rejects
// undefined field values outright, so nothing may reach it unset.
func sanitize(item domain.NormalizedNewsItem) (domain.NormalizedNewsItem, []string) {
	var defaulted []string

	if item.ID == "" {
		item.ID = item.SourceID
	}
	if item.SourceID == "" {
		item.SourceID = item.ID
	}

	item.Title = strings.TrimSpace(item.Title)

	if strings.TrimSpace(item.Content) == "" {
		// Degraded extraction: the title stands in as minimal content
		// rather than persisting an empty body.
		item.Content = item.Title
		defaulted = append(defaulted, "content")
	}
	if strings.TrimSpace(item.Summary) == "" {
		item.Summary = extract.Summarize(item.Content)
	}
	if item.Category == "" {
		item.Category = taxonomy.DefaultCategory
		defaulted = append(defaulted, "category")
	}
	if item.Priority == "" {
		item.Priority = taxonomy.DefaultPriority
		defaulted = append(defaulted, "priority")
	}
	if item.Language == "" {
		item.Language = taxonomy.DefaultLanguage
		defaulted = append(defaulted, "language")
	}
	if item.MediaURLs == nil {
		item.MediaURLs = []string{}
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if item.Status == "" {
		item.Status = domain.StatusDraft
	}
	if item.IngestedAt.IsZero() {
		item.IngestedAt = time.Now().UTC()
	}

	return item, defaulted
}
