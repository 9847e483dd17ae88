package query

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Entity and keyword extraction is a pure local heuristic: no NER model, no
// I/O. Quoted phrases and capitalized tokens become entity candidates;
// keywords are the lowercased tokens left after stop-word filtering.

var (
	quotedRe = regexp.MustCompile(`"([^"]+)"`)
	tokenRe  = regexp.MustCompile(`\w+`)

	// Articles, prepositions, auxiliaries, interrogatives and query verbs.
	stopWords = map[string]struct{}{
		"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
		"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
		"from": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
		"been": {}, "what": {}, "who": {}, "where": {}, "when": {}, "why": {},
		"how": {}, "show": {}, "find": {}, "get": {},
	}
)

// ExtractEntities returns de-duplicated entity candidates from the query:
// every double-quoted substring taken verbatim, plus every remaining
// whitespace token that starts with an uppercase rune and is not an
// interrogative or query verb. Single-character tokens are ignored.
func ExtractEntities(query string) []string {
	var entities []string
	seen := make(map[string]struct{})

	add := func(candidate string) {
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		entities = append(entities, candidate)
	}

	for _, match := range quotedRe.FindAllStringSubmatch(query, -1) {
		add(match[1])
	}

	// Quoted phrases are claimed as a whole; remove them so their inner
	// words are not re-added as separate candidates.
	remainder := quotedRe.ReplaceAllString(query, " ")

	for _, word := range strings.Fields(remainder) {
		first, _ := utf8.DecodeRuneInString(word)
		if !unicode.IsUpper(first) || utf8.RuneCountInString(word) <= 1 {
			continue
		}
		if _, stop := stopWords[strings.ToLower(word)]; stop {
			continue
		}
		add(word)
	}

	return entities
}

// ExtractKeywords lowercases the query, tokenizes on word boundaries and
// drops stop words and tokens of length <= 2. Duplicates are kept.
func ExtractKeywords(query string) []string {
	var keywords []string
	for _, word := range tokenRe.FindAllString(strings.ToLower(query), -1) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}
