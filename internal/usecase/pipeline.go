// Package usecase orchestrates the four-stage ingestion flow: fetch,
// extract, normalize, and the dedup/upsert gate. Items move through the
// stages strictly one at a time; rate limiting lives in the fetcher.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aafeed/internal/aa"
	"aafeed/internal/domain"
	"aafeed/internal/extract"
	"aafeed/internal/ports"
	"aafeed/internal/taxonomy"
)

// Feed names one search-filter set processed per run.
type Feed struct {
	Name   string
	Filter domain.SearchFilter
	Window time.Duration
	Status domain.Status
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.WireSource
	Repository ports.NewsRepository
	Normalizer *taxonomy.Normalizer
	Enricher   ports.Enricher
	Notifier   ports.Notifier
	Feeds      []Feed
	Logger     *slog.Logger
}

// Pipeline implements the wire-item ingestion workflow.
type Pipeline struct {
	source     ports.WireSource
	repository ports.NewsRepository
	normalizer *taxonomy.Normalizer
	enricher   ports.Enricher
	notifier   ports.Notifier
	feeds      []Feed
	gate       *Gate
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		normalizer: deps.Normalizer,
		enricher:   deps.Enricher,
		notifier:   deps.Notifier,
		feeds:      deps.Feeds,
		gate:       NewGate(deps.Repository, logger.With("stage", "gate")),
		logger:     logger,
	}
}

// Run processes every configured feed for the given trigger time. A failed
// feed is logged and the run continues, except when the wire service
// rejects the credentials outright; then no feed can produce anything and
// the run aborts early.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (domain.BatchSummary, error) {
	var total domain.BatchSummary

	for _, feed := range p.feeds {
		summary, _, err := p.ProcessFeed(ctx, feed, now)
		total.Add(summary)
		if err != nil {
			var fetchErr *aa.FetchError
			if errors.As(err, &fetchErr) && fetchErr.Unauthorized() {
				return total, fmt.Errorf("wire service rejected credentials: %w", err)
			}
			p.logger.Error("feed failed", "feed", feed.Name, "error", err)
		}
	}

	return total, nil
}

// ProcessFeed runs one search batch through the pipeline. Items are
// processed sequentially in search order; a single bad item becomes a
// failed result and never poisons the batch. The returned error is non-nil
// only when the search itself failed and no item could be produced.
func (p *Pipeline) ProcessFeed(ctx context.Context, feed Feed, now time.Time) (domain.BatchSummary, []domain.ItemResult, error) {
	filter := feed.Filter
	if feed.Window > 0 {
		filter.Start = now.Add(-feed.Window)
		filter.End = now
	}

	items, total, err := p.source.Search(ctx, filter)
	if err != nil {
		return domain.BatchSummary{}, nil, fmt.Errorf("search feed %s: %w", feed.Name, err)
	}

	p.logger.Debug("search returned", "feed", feed.Name, "items", len(items), "total", total)

	summary := domain.BatchSummary{Found: len(items)}
	results := make([]domain.ItemResult, 0, len(items))

	// Pre-filter stored IDs so duplicates do not burn document-fetch slots.
	// The gate remains the authoritative check.
	existing := p.existingIDs(ctx, items)

	for _, item := range items {
		if existing[item.ID] {
			results = append(results, domain.ItemResult{
				SourceID: item.ID,
				Outcome:  domain.OutcomeSkippedDuplicate,
			})
			continue
		}
		summary.New++

		result := p.processItem(ctx, item, feed.Status)
		results = append(results, result)

		switch result.Outcome {
		case domain.OutcomeInserted:
			summary.Processed++
		case domain.OutcomeFailed:
			summary.Errors++
			p.logger.Warn("item failed", "feed", feed.Name, "item", item.ID, "error", result.Err)
		}
	}

	p.logger.Info("feed done",
		"feed", feed.Name,
		"found", summary.Found,
		"new", summary.New,
		"processed", summary.Processed,
		"errors", summary.Errors)

	if p.notifier != nil {
		if err := p.notifier.PublishSummary(ctx, feed.Name, summary); err != nil {
			p.logger.Warn("publish summary failed", "feed", feed.Name, "error", err)
		}
	}

	return summary, results, nil
}

// processItem walks one item through document fetch, extraction,
// normalization, and the gate, converting any error into a terminal
// outcome record.
func (p *Pipeline) processItem(ctx context.Context, item domain.WireItem, status domain.Status) domain.ItemResult {
	result := domain.ItemResult{SourceID: item.ID}

	raw := item.RawBody
	if raw == "" {
		body, err := p.source.Document(ctx, item.ID, item.Type)
		if err != nil {
			result.Outcome = domain.OutcomeFailed
			result.Err = fmt.Errorf("fetch document: %w", err)
			return result
		}
		raw = body
	}

	extracted := extract.Extract(raw, item.Type)
	result.Degraded = extracted.Degraded
	if extracted.Degraded {
		p.logger.Debug("extraction degraded, substituting title", "item", item.ID)
	}

	norm := p.normalizer.Normalize(item, extracted.Content)

	record := domain.NormalizedNewsItem{
		ID:         item.ID,
		SourceID:   item.ID,
		Title:      item.Title,
		Content:    extracted.Content,
		Summary:    extracted.Summary,
		Category:   norm.Category,
		MediaURLs:  extracted.MediaURLs,
		Priority:   norm.Priority,
		Language:   norm.Language,
		GroupID:    item.GroupID,
		Status:     status,
		IngestedAt: time.Now().UTC(),
	}

	outcome, defaulted, err := p.gate.Upsert(ctx, record)
	result.Outcome = outcome
	result.Err = err
	result.DefaultedFields = append(norm.Defaulted, defaulted...)

	if outcome == domain.OutcomeInserted {
		p.enrich(ctx, record)
	}

	return result
}

// enrich is the optional post-insert rewrite; the stored item is already
// valid, so a failed enrichment only logs.
func (p *Pipeline) enrich(ctx context.Context, item domain.NormalizedNewsItem) {
	if p.enricher == nil {
		return
	}

	enrichment, err := p.enricher.Enhance(ctx, item)
	if err != nil {
		p.logger.Warn("enrichment failed", "item", item.SourceID, "error", err)
		return
	}

	if err := p.repository.ApplyEnrichment(ctx, item.SourceID, enrichment); err != nil {
		p.logger.Warn("apply enrichment failed", "item", item.SourceID, "error", err)
	}
}

func (p *Pipeline) existingIDs(ctx context.Context, items []domain.WireItem) map[string]bool {
	if len(items) == 0 {
		return map[string]bool{}
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	existing, err := p.repository.ExistingIDs(ctx, ids)
	if err != nil {
		p.logger.Warn("existing-id prefilter failed, relying on gate", "error", err)
		return map[string]bool{}
	}
	return existing
}
