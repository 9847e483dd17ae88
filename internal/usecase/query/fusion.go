package query

import (
	"sort"
	"strings"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

// Default source-weight multipliers. Vector similarity is the most
// trustworthy signal, exact keyword matches the least.
const (
	weightVector  = 1.0
	weightGraph   = 0.9
	weightKeyword = 0.8
	weightOther   = 0.7
)

// dedupPrefixLen is how much of the content identifies a duplicate.
const dedupPrefixLen = 100

// Fusion merges result sets from independent retrieval strategies into one
// ranked, deduplicated sequence. Weights are used as a comparison key only;
// input scores are never mutated, which makes Rank idempotent.
type Fusion struct {
	Weights map[string]float64
}

// NewFusion creates a Fusion with the default source weights.
func NewFusion() *Fusion {
	return &Fusion{
		Weights: map[string]float64{
			"vector":  weightVector,
			"graph":   weightGraph,
			"keyword": weightKeyword,
		},
	}
}

// WeightedScore returns the result's score after source weighting. Unknown
// sources (including modality-qualified vector variants) get the default
// weight.
func (f *Fusion) WeightedScore(r repository.SearchResult) float64 {
	if w, ok := f.Weights[r.Source]; ok {
		return r.Score * w
	}
	return r.Score * weightOther
}

// Rank sorts results by weighted score descending (stable, so ties keep
// input order), drops duplicates by content prefix keeping the first
// occurrence, and truncates to topK.
func (f *Fusion) Rank(results []repository.SearchResult, topK int) []repository.SearchResult {
	ranked := make([]repository.SearchResult, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		return f.WeightedScore(ranked[i]) > f.WeightedScore(ranked[j])
	})

	seen := make(map[string]struct{}, len(ranked))
	deduped := ranked[:0]
	for _, r := range ranked {
		key := dedupKey(r.Content)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, r)
	}

	if topK > 0 && len(deduped) > topK {
		deduped = deduped[:topK]
	}
	return deduped
}

// dedupKey is the lowercase content prefix used as identity during
// deduplication. The prefix is counted in runes so multibyte content is
// never cut mid-character.
func dedupKey(content string) string {
	runes := []rune(strings.ToLower(content))
	if len(runes) > dedupPrefixLen {
		runes = runes[:dedupPrefixLen]
	}
	return string(runes)
}
