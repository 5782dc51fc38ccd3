package rag

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// SnippetLimit caps the snippet carried in each result.
	SnippetLimit = 320

	// DefaultLimit applies when the caller passes a non-positive limit.
	DefaultLimit = 5

	// titleBoost is added to the score when a query term also appears in
	// the document title.
	titleBoost = 0.25
)

// tokenize lowercases text and splits it on non-alphanumeric runes,
// dropping duplicates.
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// scoreChunk rates a chunk against the query terms: the fraction of query
// terms present in the chunk, boosted when terms also hit the title.
func scoreChunk(queryTerms map[string]struct{}, title, content string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	chunkTerms := tokenize(content)
	titleTerms := tokenize(title)

	matched := 0
	titleHits := 0
	for term := range queryTerms {
		if _, ok := chunkTerms[term]; ok {
			matched++
		}
		if _, ok := titleTerms[term]; ok {
			titleHits++
		}
	}
	if matched == 0 && titleHits == 0 {
		return 0
	}
	score := float64(matched) / float64(len(queryTerms))
	if titleHits > 0 {
		score += titleBoost * float64(titleHits) / float64(len(queryTerms))
	}
	return score
}

// snippet returns the leading part of content, trimmed to SnippetLimit at a
// rune boundary.
func snippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= SnippetLimit {
		return content
	}
	runes := []rune(content)
	if len(runes) <= SnippetLimit {
		return content
	}
	return string(runes[:SnippetLimit])
}

type scored struct {
	result  SearchResult
	ordinal int
}

// rank scores every candidate, drops zero scores, and returns the top
// results in deterministic order.
func rank(queryTerms map[string]struct{}, candidates []scored, limit int) []SearchResult {
	if limit <= 0 {
		limit = DefaultLimit
	}
	kept := candidates[:0]
	for _, c := range candidates {
		if c.result.Score > 0 {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].result.Score != kept[j].result.Score {
			return kept[i].result.Score > kept[j].result.Score
		}
		if kept[i].result.DocID != kept[j].result.DocID {
			return kept[i].result.DocID < kept[j].result.DocID
		}
		return kept[i].ordinal < kept[j].ordinal
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	out := make([]SearchResult, len(kept))
	for i, c := range kept {
		out[i] = c.result
	}
	return out
}
