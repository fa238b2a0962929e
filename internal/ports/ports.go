package ports

import (
	"context"
	"time"

	"aafeed/internal/domain"
)

// WireSource pulls item listings and full documents from the upstream wire
// service.
type WireSource interface {
	// Search lists matching items (without bodies) and the service-side total.
	Search(ctx context.Context, filter domain.SearchFilter) ([]domain.WireItem, int, error)
	// Document retrieves the raw body of a single item; the requested format
	// depends on the wire type.
	Document(ctx context.Context, id string, typ domain.WireType) (string, error)
}

// NewsRepository persists normalized items and answers dedup queries.
type NewsRepository interface {
	// ExistingIDs reports which of the given source IDs are already stored.
	ExistingIDs(ctx context.Context, sourceIDs []string) (map[string]bool, error)
	// Exists checks a single source ID.
	Exists(ctx context.Context, sourceID string) (bool, error)
	// Insert writes a new record; domain.ErrDuplicate when a record with the
	// same source ID already exists.
	Insert(ctx context.Context, item domain.NormalizedNewsItem) error
	// ApplyEnrichment overwrites title/content/tags of a stored record.
	ApplyEnrichment(ctx context.Context, sourceID string, e domain.Enrichment) error
}

// Enricher rewrites a freshly inserted item via an external text service.
type Enricher interface {
	Enhance(ctx context.Context, item domain.NormalizedNewsItem) (domain.Enrichment, error)
}

// Notifier publishes batch run summaries to an ops channel.
type Notifier interface {
	PublishSummary(ctx context.Context, feed string, summary domain.BatchSummary) error
}

// Scheduler controls when ingestion batches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
