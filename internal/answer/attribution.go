package answer

import (
	"strings"

	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// notFoundIndicators are answer phrasings that mean the record was not
// found or the field is missing. An answer containing any of them never
// gets citations: citing a source for "not available" misleads the user.
var notFoundIndicators = []string{
	"not available",
	"not in the context",
	"not in the database",
	"is not available",
	"not found",
	"does not exist",
}

// minNameLen guards the answer-mentions-record check: record names shorter
// than this match too easily inside unrelated prose.
const minNameLen = 10

// minOverlapWords is how many significant words a query and a record name
// must share before the record counts as the query's subject.
const minOverlapWords = 2

// resolveAttribution decides which provenance references accompany a
// generated answer. It attributes the answer to a single retrieved record,
// first by lexical overlap between query and record names, then by the
// answer literally containing a record name, and returns only that
// record's URLs. An answer that says the record was not found gets none.
func resolveAttribution(answerText, query string, retrieved []rag.ScoredPassage) []string {
	answerLower := strings.ToLower(answerText)
	for _, indicator := range notFoundIndicators {
		if strings.Contains(answerLower, indicator) {
			return []string{}
		}
	}

	recordNames := retrievedRecordNames(retrieved)
	attributed := bestOverlapMatch(normalizeQuery(query), recordNames)

	if attributed == "" {
		for _, name := range recordNames {
			if len(name) > minNameLen && strings.Contains(answerLower, name) {
				attributed = name
				break
			}
		}
	}

	if attributed != "" {
		return recordURLs(retrieved, attributed)
	}

	// No record could be pinned down. Fall back to every retrieved URL
	// rather than silently dropping the citation.
	return allRetrievedURLs(retrieved)
}

// normalizeQuery lowercases the query and canonicalizes spelling variants
// of fund categories so overlap matching is not defeated by "flexicap"
// versus "flexi cap".
func normalizeQuery(query string) string {
	q := strings.ToLower(query)
	q = strings.ReplaceAll(q, "flexicap", "flexi cap")
	q = strings.ReplaceAll(q, "flexi-cap", "flexi cap")
	return q
}

// bestOverlapMatch returns the record name sharing the most significant
// words (longer than 3 characters) with the query, requiring at least
// minOverlapWords matches. Earlier names win ties, which keeps the result
// deterministic since retrieval order is ranked.
func bestOverlapMatch(normalizedQuery string, recordNames []string) string {
	queryWords := significantWords(normalizedQuery)

	best := ""
	bestScore := 0
	for _, name := range recordNames {
		nameWords := significantWords(name)
		score := 0
		for w := range nameWords {
			if _, ok := queryWords[w]; ok {
				score++
			}
		}
		if score > bestScore && score >= minOverlapWords {
			bestScore = score
			best = name
		}
	}
	return best
}

func significantWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		if len(w) > 3 {
			words[w] = struct{}{}
		}
	}
	return words
}

// retrievedRecordNames returns the lowercase record names of the retrieved
// passages in rank order, deduplicated.
func retrievedRecordNames(retrieved []rag.ScoredPassage) []string {
	names := make([]string, 0, len(retrieved))
	seen := make(map[string]struct{})
	for _, p := range retrieved {
		name := strings.ToLower(p.RecordName)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// recordURLs collects the distinct provenance URLs of the retrieved
// passages belonging to the named record.
func recordURLs(retrieved []rag.ScoredPassage, recordName string) []string {
	urls := make([]string, 0, 1)
	seen := make(map[string]struct{})
	for _, p := range retrieved {
		if strings.ToLower(p.RecordName) != recordName || p.SourceURL == "" {
			continue
		}
		if _, ok := seen[p.SourceURL]; ok {
			continue
		}
		seen[p.SourceURL] = struct{}{}
		urls = append(urls, p.SourceURL)
	}
	return urls
}
