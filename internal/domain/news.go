package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// WireType enumerates the content kinds delivered by the wire service
// (numeric codes 1-5 on the wire).
type WireType int

const (
	TypeText    WireType = 1
	TypePicture WireType = 2
	TypeVideo   WireType = 3
	TypeFile    WireType = 4
	TypeGraphic WireType = 5
)

func (t WireType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypePicture:
		return "picture"
	case TypeVideo:
		return "video"
	case TypeFile:
		return "file"
	case TypeGraphic:
		return "graphic"
	}
	return fmt.Sprintf("wiretype(%d)", int(t))
}

// WireItem is a single article/photo/video unit as listed by the wire
// service search endpoint. Optional numeric enums use zero for "absent";
// real codes start at 1.
type WireItem struct {
	ID           string
	Type         WireType
	Title        string
	RawBody      string
	CategoryCode int
	PriorityCode int
	LanguageCode int
	GroupID      string
	PublishedAt  time.Time
}

// SearchFilter carries the parameters of one search call against the wire
// service. Zero values mean "no filter".
type SearchFilter struct {
	Start      time.Time
	End        time.Time
	Categories []int
	Types      []int
	Priorities []int
	Languages  []int
	Offset     int
	Limit      int
}

// Status of a persisted item; set by caller policy, never by the pipeline.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// NormalizedNewsItem is the record persisted into the news store.
// SourceID is the sole dedup key.
type NormalizedNewsItem struct {
	ID         string
	Title      string
	Content    string
	Summary    string
	Category   string
	MediaURLs  []string
	Priority   string
	Language   string
	GroupID    string
	SourceID   string
	Status     Status
	Tags       []string
	IngestedAt time.Time
}

// Enrichment is the optional post-insert rewrite produced by a
// generative-AI collaborator.
type Enrichment struct {
	Title   string
	Content string
	Tags    []string
}

// Outcome is the terminal state of one item's trip through the pipeline.
type Outcome string

const (
	OutcomeInserted         Outcome = "inserted"
	OutcomeSkippedDuplicate Outcome = "skipped-duplicate"
	OutcomeFailed           Outcome = "failed"
)

// ItemResult records one item's outcome for batch reporting.
type ItemResult struct {
	SourceID        string
	Outcome         Outcome
	Err             error
	Degraded        bool
	DefaultedFields []string
}

// BatchSummary aggregates one pipeline run over a feed.
type BatchSummary struct {
	Found     int
	New       int
	Processed int
	Errors    int
}

// Add folds another summary into the receiver (used when a run spans
// several feeds).
func (s *BatchSummary) Add(other BatchSummary) {
	s.Found += other.Found
	s.New += other.New
	s.Processed += other.Processed
	s.Errors += other.Errors
}

// ErrDuplicate is returned by a store insert that lost to an existing
// record with the same source ID.
var ErrDuplicate = errors.New("duplicate source id")

// UpsertError reports a store write rejected because of missing or
// disallowed field values; Fields names the offenders.
type UpsertError struct {
	Fields []string
	Err    error
}

func (e *UpsertError) Error() string {
	msg := fmt.Sprintf("upsert rejected, bad fields: %s", strings.Join(e.Fields, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}
