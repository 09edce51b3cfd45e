package answer

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// systemPrompt constrains the generator to factual, context-only answers.
// Citations are attached by the synthesizer after attribution, never by the
// model, so the prompt forbids inline source URLs.
const systemPrompt = `You are a helpful assistant that answers questions about mutual funds based on provided factual information.

IMPORTANT RULES:
1. Only use information from the provided context
2. Provide factual answers only - NO investment advice
3. Always mention the exact fund name from the context in your answer
4. If the specific fund mentioned in the question is NOT in the context, explicitly state that the fund is not available in the database
5. If the fund exists in the context but the specific field is missing, say: "The [field] for [fund name] is not available in the context."
6. Keep answers concise and factual
7. Do not make up or infer information not explicitly stated
8. Do NOT provide source URLs in your answer - they will be added separately`

// buildPrompt assembles the chat messages for one generative attempt: the
// fixed rules as the system message, the concatenated retrieved passages
// plus the question as the user message.
func buildPrompt(query string, retrieved []rag.ScoredPassage) []*schema.Message {
	texts := make([]string, 0, len(retrieved))
	for _, p := range retrieved {
		texts = append(texts, p.Text)
	}

	var b strings.Builder
	b.WriteString("Context (factual information about mutual funds):\n")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer the question using only the information from the context above. Be factual and concise. Do not provide investment advice. If the fund is not in the context, clearly state that.")

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(b.String()),
	}
}
