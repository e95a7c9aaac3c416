// Package reformulate generates alternative query phrasings used to recover
// from zero-result provider responses. One shared strategy serves every
// provider category, so all adapters get consistent fallback behaviour.
package reformulate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/searchmux/searchmux/internal/types"
)

// Reformulator produces ordered candidate queries for a zero-result retry.
// Implementations must be safe for concurrent use.
type Reformulator interface {
	Candidates(query string, category types.ToolCategory) []string
}

var wordPattern = regexp.MustCompile(`\b\w{3,}\b`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "what": {},
	"when": {}, "where": {}, "why": {}, "how": {}, "who": {}, "which": {},
}

// categoryTemplates are tried first; they bias the retry toward the kind of
// phrasing each backend indexes best.
var categoryTemplates = map[types.ToolCategory][]string{
	types.CategoryAcademic: {"%s research", "%s study"},
	types.CategoryNews:     {"latest %s", "%s news"},
	types.CategoryPatent:   {"%s patent", "%s invention"},
	types.CategoryExpert:   {"%s research", "%s"},
	types.CategoryWeb:      {"%s"},
}

// Default is the stock reformulation strategy: category template variants,
// then a keyword-only variant, then a single strongest-keyword variant.
type Default struct{}

// NewDefault returns the stock reformulator.
func NewDefault() *Default {
	return &Default{}
}

// Candidates returns alternative phrasings in the order they should be
// tried. The original query is never included and duplicates are removed.
func (d *Default) Candidates(query string, category types.ToolCategory) []string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}

	keywords := extractKeywords(trimmed)

	var raw []string

	topic := strings.Join(topN(keywords, 3), " ")
	if topic == "" {
		topic = trimmed
	}

	for _, tmpl := range categoryTemplates[category] {
		raw = append(raw, fmt.Sprintf(tmpl, topic))
	}

	// Keyword-only variant keeps the strongest terms from the full query.
	if kw := strings.Join(topN(keywords, 4), " "); kw != "" {
		raw = append(raw, kw)
	}

	// Last resort: the single most specific keyword.
	if len(keywords) > 0 {
		raw = append(raw, keywords[0])
	}

	seen := map[string]struct{}{strings.ToLower(trimmed): {}}
	candidates := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, c)
	}

	return candidates
}

// extractKeywords returns non-stopword terms, longest first. The sort is
// stable so results are deterministic for a fixed query.
func extractKeywords(query string) []string {
	words := wordPattern.FindAllString(strings.ToLower(query), -1)

	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		return len(keywords[i]) > len(keywords[j])
	})
	return keywords
}

func topN(words []string, n int) []string {
	if len(words) <= n {
		return words
	}
	return words[:n]
}
