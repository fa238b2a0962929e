// Package taxonomy maps the wire service's numeric category, priority, and
// language enums onto the site's string taxonomy. Lookups are total: unknown
// or absent codes fall through to keyword inference and finally to fixed
// defaults, never to an empty value.
package taxonomy

import (
	"log/slog"
	"strings"

	"aafeed/internal/domain"
)

// Defaults applied when neither the enum nor inference yields a mapping.
const (
	DefaultCategory = "general"
	DefaultPriority = "routine"
	DefaultLanguage = "tr"
)

var categoryByCode = map[int]string{
	1:  "general",
	2:  "spor",
	3:  "ekonomi",
	4:  "saglik",
	5:  "teknoloji",
	6:  "politika",
	7:  "kultur",
	8:  "egitim",
	9:  "dunya",
	10: "yasam",
}

// categoryOrder fixes the inference tie-break order across runs.
var categoryOrder = []string{
	"politika", "ekonomi", "spor", "teknoloji", "saglik",
	"kultur", "egitim", "dunya", "yasam",
}

var priorityByCode = map[int]string{
	1: "flash",
	2: "urgent",
	3: "important",
	4: "routine",
	5: "special",
	6: "archive",
}

var languageByCode = map[int]string{
	1: "tr",
	2: "en",
	3: "ar",
}

// Result is the normalized taxonomy for one wire item. Defaulted lists the
// fields that fell back to a default instead of an explicit mapping; it
// feeds coverage counters, not error handling.
type Result struct {
	Category         string
	Priority         string
	Language         string
	CategoryInferred bool
	Defaulted        []string
}

// Normalizer resolves wire enums against the code tables and, for
// categories, against per-slug keyword lists.
type Normalizer struct {
	keywords map[string][]string
	logger   *slog.Logger
}

// New merges keyword overrides from configuration over the built-in tables.
func New(overrides map[string][]string, logger *slog.Logger) *Normalizer {
	keywords := make(map[string][]string, len(defaultKeywords))
	for slug, words := range defaultKeywords {
		keywords[slug] = append([]string(nil), words...)
	}
	for slug, words := range overrides {
		keywords[slug] = append(keywords[slug], words...)
	}
	return &Normalizer{keywords: keywords, logger: logger}
}

// Normalize maps the item's enums, inferring the category from title and
// extracted content when the code is absent or unmapped. The returned
// category is always a non-empty slug from the fixed taxonomy.
func (n *Normalizer) Normalize(item domain.WireItem, content string) Result {
	var res Result

	if slug, ok := categoryByCode[item.CategoryCode]; ok {
		res.Category = slug
	} else if slug := n.inferCategory(item.Title + " " + content); slug != "" {
		res.Category = slug
		res.CategoryInferred = true
	} else {
		res.Category = DefaultCategory
		res.Defaulted = append(res.Defaulted, "category")
	}

	if label, ok := priorityByCode[item.PriorityCode]; ok {
		res.Priority = label
	} else {
		res.Priority = DefaultPriority
		res.Defaulted = append(res.Defaulted, "priority")
	}

	if label, ok := languageByCode[item.LanguageCode]; ok {
		res.Language = label
	} else {
		res.Language = DefaultLanguage
		res.Defaulted = append(res.Defaulted, "language")
	}

	if len(res.Defaulted) > 0 && n.logger != nil {
		n.logger.Debug("taxonomy defaulted",
			"item", item.ID,
			"fields", strings.Join(res.Defaulted, ","))
	}

	return res
}

// inferCategory scores keyword hits per slug over the lowercased text and
// returns the best-scoring slug, or "" when nothing matches. Ties resolve
// by the fixed category order.
func (n *Normalizer) inferCategory(text string) string {
	lowered := strings.ToLower(text)

	best := ""
	bestHits := 0
	for _, slug := range categoryOrder {
		hits := 0
		for _, keyword := range n.keywords[slug] {
			if strings.Contains(lowered, keyword) {
				hits++
			}
		}
		if hits > bestHits {
			best = slug
			bestHits = hits
		}
	}
	return best
}

// Slugs returns the fixed taxonomy, default slug included.
func Slugs() []string {
	slugs := make([]string, 0, len(categoryOrder)+1)
	slugs = append(slugs, DefaultCategory)
	slugs = append(slugs, categoryOrder...)
	return slugs
}
