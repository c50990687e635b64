package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

// maxChunkRunes keeps a handful of citations inside small local context windows.
const maxChunkRunes = 1500

func buildAnswerPrompt(question string, chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("You answer questions about real estate transaction documents: settlement statements, income verifications and purchase agreements.\n")
	b.WriteString("Use only the sources below. Cite them by their [number]. If the sources do not contain the answer, say so.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\nSources:\n", strings.TrimSpace(question))

	for i, chunk := range chunks {
		text := chunk.Text
		if r := []rune(text); len(r) > maxChunkRunes {
			text = string(r[:maxChunkRunes]) + "..."
		}
		fmt.Fprintf(&b, "[%d] %s (%s) location=%s\n%s\n\n", i+1, chunk.Filename, chunk.Category, chunk.Location, text)
	}
	return b.String()
}
