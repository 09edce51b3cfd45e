package answer

import (
	"reflect"
	"testing"

	"github.com/fundfaq/fundfaq-go/internal/rag"
)

func scoredPassage(record, url string) rag.ScoredPassage {
	return rag.ScoredPassage{
		Passage: rag.Passage{
			Text:       "Fund: " + record,
			RecordName: record,
			SourceURL:  url,
			Kind:       rag.KindComprehensive,
		},
	}
}

func Test_ResolveAttribution_QueryOverlapPinsRecord(t *testing.T) {
	t.Parallel()

	retrieved := []rag.ScoredPassage{
		scoredPassage("Parag Parikh Liquid Fund", "https://example.com/liquid"),
		scoredPassage("Parag Parikh Arbitrage Fund", "https://example.com/arbitrage"),
	}

	urls := resolveAttribution(
		"The exit load is Nil.",
		"what is the exit load for the parag parikh liquid fund?",
		retrieved,
	)
	if !reflect.DeepEqual(urls, []string{"https://example.com/liquid"}) {
		t.Errorf("urls = %v, want only liquid fund provenance", urls)
	}
}

func Test_ResolveAttribution_AnswerMentionFallback(t *testing.T) {
	t.Parallel()

	retrieved := []rag.ScoredPassage{
		scoredPassage("Parag Parikh Liquid Fund", "https://example.com/liquid"),
		scoredPassage("Parag Parikh Arbitrage Fund", "https://example.com/arbitrage"),
	}

	// The query shares too few words with any record name, so attribution
	// falls back to the record named in the answer.
	urls := resolveAttribution(
		"The Parag Parikh Arbitrage Fund has an expense ratio of 0.35%.",
		"expense?",
		retrieved,
	)
	if !reflect.DeepEqual(urls, []string{"https://example.com/arbitrage"}) {
		t.Errorf("urls = %v, want only arbitrage fund provenance", urls)
	}
}

func Test_ResolveAttribution_NotFoundAnswerGetsNoCitations(t *testing.T) {
	t.Parallel()

	retrieved := []rag.ScoredPassage{
		scoredPassage("Parag Parikh Liquid Fund", "https://example.com/liquid"),
	}

	urls := resolveAttribution(
		"The fund Midcap Opportunities is not available in the database.",
		"expense ratio for midcap opportunities fund?",
		retrieved,
	)
	if len(urls) != 0 {
		t.Errorf("expected no citations for a not-found answer, got %v", urls)
	}
}

func Test_ResolveAttribution_NoMatchUsesAllRetrievedURLs(t *testing.T) {
	t.Parallel()

	retrieved := []rag.ScoredPassage{
		scoredPassage("Parag Parikh Liquid Fund", "https://example.com/liquid"),
		scoredPassage("Parag Parikh Arbitrage Fund", "https://example.com/arbitrage"),
	}

	urls := resolveAttribution("It is Nil.", "load?", retrieved)
	want := []string{"https://example.com/liquid", "https://example.com/arbitrage"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("urls = %v, want %v", urls, want)
	}
}

func Test_ResolveAttribution_DeduplicatesRecordURLs(t *testing.T) {
	t.Parallel()

	retrieved := []rag.ScoredPassage{
		scoredPassage("Parag Parikh Liquid Fund", "https://example.com/liquid"),
		scoredPassage("Parag Parikh Liquid Fund", "https://example.com/liquid"),
	}

	urls := resolveAttribution(
		"The exit load for the Parag Parikh Liquid Fund is Nil.",
		"exit load for parag parikh liquid fund?",
		retrieved,
	)
	if !reflect.DeepEqual(urls, []string{"https://example.com/liquid"}) {
		t.Errorf("urls = %v, want a single deduplicated url", urls)
	}
}

func Test_ResolveAttribution_NormalizesCategorySpelling(t *testing.T) {
	t.Parallel()

	retrieved := []rag.ScoredPassage{
		scoredPassage("Parag Parikh Flexi Cap Fund", "https://example.com/flexi-cap"),
		scoredPassage("Parag Parikh Liquid Fund", "https://example.com/liquid"),
	}

	urls := resolveAttribution(
		"The expense ratio is 0.63%.",
		"expense ratio of the parag parikh flexicap fund?",
		retrieved,
	)
	if !reflect.DeepEqual(urls, []string{"https://example.com/flexi-cap"}) {
		t.Errorf("urls = %v, want flexi cap provenance", urls)
	}
}
