// Package extract pulls canonical text and media references out of raw wire
// documents. The wire markup is only loosely schema'd in practice, so text
// extraction is an ordered chain of pattern-matching fallbacks rather than a
// strict parser; each strategy is a pure function.
package extract

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"aafeed/internal/domain"
)

const (
	// minUsableRunes is the shortest trimmed text a strip-based fallback may
	// return; anything shorter is treated as noise and the chain continues.
	minUsableRunes = 50
	// minLooseRunRunes filters text runs considered by the last-resort scan.
	minLooseRunRunes = 20
	// maxLooseRuns caps how many runs the last-resort scan stitches together.
	maxLooseRuns = 5
	// summaryRunes is the truncation length for derived summaries.
	summaryRunes = 200
)

var (
	reContentSet = regexp.MustCompile(`(?is)<contentSet[^>]*>(.*?)</contentSet>`)
	reInlineXML  = regexp.MustCompile(`(?is)<inlineXML[^>]*>(.*?)</inlineXML>`)
	reBody       = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	reParagraph  = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	reInlineData = regexp.MustCompile(`(?is)<inlineData[^>]*>(.*?)</inlineData>`)
	reTag        = regexp.MustCompile(`<[^>]*>`)
	reMediaRef   = regexp.MustCompile(`(?i)(?:href|src)\s*=\s*["']([^"']+\.(?:jpe?g|png|mp4|mov|avi|webm)(?:\?[^"']*)?)["']`)
	reSpaces     = regexp.MustCompile(`[ \t\r\f]+`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

// Result is the extractor's output for one raw document.
type Result struct {
	Content   string
	Summary   string
	MediaURLs []string
	// Degraded is set when every text strategy failed and Content is empty;
	// the caller substitutes the title as placeholder content.
	Degraded bool
}

// strategy pairs an extraction function with its acceptance rule. The
// structured strategies are trusted with any non-empty result (matched
// paragraph elements are structural evidence, not noise); the strip-based
// fallbacks must clear the minimum-length gate.
type strategy struct {
	fn     func(string) string
	accept func(string) bool
}

// Extract runs the fallback chain appropriate for the wire type and the
// unconditional media scan over rawBody.
func Extract(rawBody string, typ domain.WireType) Result {
	chain := []strategy{
		{paragraphBlock, nonEmpty},
		{inlineData, usable},
		{looseText, usable},
	}
	if typ == domain.TypePicture || typ == domain.TypeVideo || typ == domain.TypeGraphic {
		chain = append([]strategy{{htmlParagraphs, nonEmpty}}, chain...)
	}

	var content string
	for _, s := range chain {
		if text := s.fn(rawBody); s.accept(text) {
			content = text
			break
		}
	}

	res := Result{
		Content:   content,
		Summary:   Summarize(content),
		MediaURLs: mediaURLs(rawBody),
		Degraded:  content == "",
	}
	return res
}

// Summarize derives the stored summary: a truncation of content, never an
// independently re-extracted abstract.
func Summarize(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= summaryRunes {
		return content
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:summaryRunes])) + "..."
}

// paragraphBlock extracts the structured content path: content set, then
// inline markup, then body, then paragraph elements joined by blank lines.
// Narrowing is lenient; a missing outer wrapper does not abort the chain.
func paragraphBlock(raw string) string {
	scope := raw
	for _, re := range []*regexp.Regexp{reContentSet, reInlineXML, reBody} {
		if m := re.FindStringSubmatch(scope); m != nil {
			scope = m[1]
		}
	}

	matches := reParagraph.FindAllStringSubmatch(scope, -1)
	if len(matches) == 0 {
		return ""
	}

	paragraphs := make([]string, 0, len(matches))
	for _, m := range matches {
		if p := cleanFragment(m[1]); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// inlineData extracts the flatter inline-data block and strips all markup.
func inlineData(raw string) string {
	m := reInlineData.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return cleanFragment(m[1])
}

// looseText is the last resort: collect non-trivial text runs between tags,
// skipping anything that still looks like markup machinery, and join the
// first few.
func looseText(raw string) string {
	runs := reTag.Split(raw, -1)
	collected := make([]string, 0, maxLooseRuns)
	for _, run := range runs {
		text := cleanFragment(run)
		if utf8.RuneCountInString(text) < minLooseRunRunes {
			continue
		}
		if looksLikeMarkup(text) {
			continue
		}
		collected = append(collected, text)
		if len(collected) == maxLooseRuns {
			break
		}
	}
	return strings.Join(collected, "\n\n")
}

// htmlParagraphs handles the web document format served for media items.
func htmlParagraphs(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if p := collapseSpace(sel.Text()); p != "" {
			paragraphs = append(paragraphs, p)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

// mediaURLs scans for embedded remote media references independent of which
// text strategy fired. Order is preserved, duplicates dropped.
func mediaURLs(raw string) []string {
	matches := reMediaRef.FindAllStringSubmatch(raw, -1)
	urls := make([]string, 0, len(matches))
	seen := map[string]struct{}{}
	for _, m := range matches {
		u := html.UnescapeString(m[1])
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

func usable(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= minUsableRunes
}

func nonEmpty(text string) bool {
	return strings.TrimSpace(text) != ""
}

// cleanFragment strips residual tags, decodes HTML entities, and collapses
// whitespace runs.
func cleanFragment(fragment string) string {
	text := reTag.ReplaceAllString(fragment, " ")
	text = html.UnescapeString(text)
	return collapseSpace(text)
}

func collapseSpace(text string) string {
	text = reSpaces.ReplaceAllString(text, " ")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func looksLikeMarkup(text string) bool {
	if strings.ContainsAny(text, "<>") {
		return true
	}
	lowered := strings.ToLower(text)
	for _, marker := range []string{"xmlns", "doctype", "encoding=", "version=", "cdata", "href=", "src="} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
