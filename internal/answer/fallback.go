package answer

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/fundfaq/fundfaq-go/internal/catalog"
	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// fieldVocabulary maps each catalog field to the query phrasings that
// select it. Longer keywords win over shorter ones so "exit load" beats
// the bare "load" and "riskometer" beats "risk".
var fieldVocabulary = map[string][]string{
	catalog.FieldExpenseRatio: {"expense ratio", "expense", "er", "total expense ratio"},
	catalog.FieldExitLoad:     {"exit load", "exit", "load", "redemption charge"},
	catalog.FieldMinimumSIP:   {"minimum sip", "min sip", "sip minimum", "minimum investment"},
	catalog.FieldLockIn:       {"lock in", "lock-in", "lockin", "lock period", "lock"},
	catalog.FieldRiskometer:   {"riskometer", "risk", "risk factor", "risk level", "risk rating"},
	catalog.FieldBenchmark:    {"benchmark", "index", "benchmark index"},
}

// fieldPatterns lazily compiles one value-extraction regexp per field.
// Each matches the field's label line in passage text, tolerating the
// parenthetical the riskometer passages carry.
var fieldPatterns = struct {
	once     sync.Once
	compiled map[string]*regexp.Regexp
}{}

func fieldPattern(field string) *regexp.Regexp {
	fieldPatterns.once.Do(func() {
		fieldPatterns.compiled = make(map[string]*regexp.Regexp, len(catalog.FieldNames))
		for _, f := range catalog.FieldNames {
			label := regexp.QuoteMeta(catalog.FieldLabels[f])
			fieldPatterns.compiled[f] = regexp.MustCompile(`(?im)^` + label + `(?:\s*\([^)]*\))?:\s*(.+)$`)
		}
	})
	return fieldPatterns.compiled[field]
}

// matchQueryField resolves which catalog field a query asks about. The
// longest matching keyword wins; field order breaks exact-length ties so
// the result is deterministic. Returns empty when nothing matches.
func matchQueryField(query string) string {
	queryLower := strings.ToLower(query)

	best := ""
	bestLen := 0
	for _, field := range catalog.FieldNames {
		for _, keyword := range fieldVocabulary[field] {
			if len(keyword) > bestLen && containsWord(queryLower, keyword) {
				best = field
				bestLen = len(keyword)
			}
		}
	}
	return best
}

// containsWord reports whether phrase occurs in text on word boundaries.
// Substring matching would let "er" fire inside "there".
func containsWord(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// extract is the degraded answering path used when the generator is out of
// quota. It pattern-matches the query against the field vocabulary, pulls
// the field's value out of the retrieved text, and composes a templated
// sentence. Field passages are preferred over comprehensive ones since
// their single value line cannot be confused with a neighboring field.
func (s *Synthesizer) extract(query string, retrieved []rag.ScoredPassage) Result {
	result := Result{
		Success:         false,
		Answer:          noRelevantInfoAnswer,
		SourceURLs:      []string{},
		Query:           query,
		RetrievedChunks: len(retrieved),
		Mode:            ModeFallbackExtraction,
	}

	field := matchQueryField(query)
	if field == "" {
		result.Answer = "I couldn't identify what information you need. Please specify: expense ratio, exit load, minimum SIP, lock-in, riskometer, or benchmark."
		return result
	}

	recordName, value := extractFieldValue(field, retrieved)
	if recordName == "" {
		return result
	}

	label := catalog.FieldLabels[field]
	if value == "N/A" {
		result.Answer = fmt.Sprintf("The %s for %s is not available.", label, recordName)
	} else {
		result.Answer = fmt.Sprintf("The %s for %s is %s.", label, recordName, value)
		result.SourceURLs = allRetrievedURLs(retrieved)
	}
	result.Success = true
	return result
}

// extractFieldValue finds the best retrieved passage carrying the field's
// value line: the highest-ranked field passage for that field, then the
// highest-ranked passage of any kind whose text matches.
func extractFieldValue(field string, retrieved []rag.ScoredPassage) (recordName, value string) {
	pattern := fieldPattern(field)

	for _, p := range retrieved {
		if p.Kind != rag.KindField || p.Field != field {
			continue
		}
		if m := pattern.FindStringSubmatch(p.Text); m != nil {
			return p.RecordName, strings.TrimSpace(m[1])
		}
	}
	for _, p := range retrieved {
		if m := pattern.FindStringSubmatch(p.Text); m != nil {
			return p.RecordName, strings.TrimSpace(m[1])
		}
	}
	return "", ""
}

// allRetrievedURLs returns every distinct provenance URL among the
// retrieved passages. Fallback mode cites loosely: no generator confirmed
// which record the answer is about.
func allRetrievedURLs(retrieved []rag.ScoredPassage) []string {
	urls := make([]string, 0, len(retrieved))
	seen := make(map[string]struct{})
	for _, p := range retrieved {
		if p.SourceURL == "" {
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
