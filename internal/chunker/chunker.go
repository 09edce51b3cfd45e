// Package chunker converts catalog records into retrieval passages. Each
// record yields one comprehensive passage covering every field plus one
// focused passage per field, all carrying the record's provenance.
package chunker

import (
	"fmt"
	"strings"

	"github.com/fundfaq/fundfaq-go/internal/catalog"
	"github.com/fundfaq/fundfaq-go/internal/rag"
)

const missingValue = "N/A"

// fieldPassageLabels overrides the display label for field passages where
// it differs from the catalog label. The riskometer passage spells out
// "Risk Factor" so risk-phrased queries embed closer to it.
var fieldPassageLabels = map[string]string{
	catalog.FieldRiskometer: "Riskometer (Risk Factor)",
}

// Chunker turns records into passages. ChunkSize and ChunkOverlap are
// carried for configurability but the structured generator never splits a
// passage: even the comprehensive form stays well under any realistic size.
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
}

// New returns a Chunker with the given size parameters.
func New(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// CreateChunks generates the passages for a single record: the
// comprehensive passage first, then one passage per field in canonical
// field order. Missing field values are rendered as "N/A" so retrieval
// still lands on the record and the synthesizer can say so.
func (c *Chunker) CreateChunks(record catalog.Record) []rag.Passage {
	variations := NameVariations(record.Name)
	aliasLine := ""
	if len(variations) > 0 {
		aliasLine = "Also known as: " + strings.Join(variations, ", ")
	}

	passages := make([]rag.Passage, 0, 1+len(catalog.FieldNames))
	passages = append(passages, rag.Passage{
		Text:       comprehensiveText(record, aliasLine),
		RecordName: record.Name,
		SourceURL:  record.SourceURL,
		Kind:       rag.KindComprehensive,
	})

	for _, field := range catalog.FieldNames {
		passages = append(passages, rag.Passage{
			Text:       fieldText(record, field, aliasLine),
			RecordName: record.Name,
			SourceURL:  record.SourceURL,
			Kind:       rag.KindField,
			Field:      field,
		})
	}

	return passages
}

// CreateChunksFromRecords generates passages for every valid record,
// preserving record order. Invalid records are skipped.
func (c *Chunker) CreateChunksFromRecords(records []catalog.Record) []rag.Passage {
	var all []rag.Passage
	for _, r := range catalog.Valid(records) {
		all = append(all, c.CreateChunks(r)...)
	}
	return all
}

func comprehensiveText(record catalog.Record, aliasLine string) string {
	lines := []string{fmt.Sprintf("Fund Name: %s", record.Name)}
	if aliasLine != "" {
		lines = append(lines, aliasLine)
	}
	for _, field := range catalog.FieldNames {
		lines = append(lines, fmt.Sprintf("%s: %s", catalog.FieldLabels[field], valueOrMissing(record, field)))
	}
	return strings.Join(lines, "\n")
}

func fieldText(record catalog.Record, field, aliasLine string) string {
	label := catalog.FieldLabels[field]
	if override, ok := fieldPassageLabels[field]; ok {
		label = override
	}

	lines := []string{fmt.Sprintf("Fund: %s", record.Name)}
	if aliasLine != "" {
		lines = append(lines, aliasLine)
	}
	lines = append(lines, fmt.Sprintf("%s: %s", label, valueOrMissing(record, field)))
	return strings.Join(lines, "\n")
}

func valueOrMissing(record catalog.Record, field string) string {
	if v := record.Field(field); v != "" {
		return v
	}
	return missingValue
}
