// Package chat turns retrieval results into a grounded answer with
// inline source citations.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/hfarouk/docdex/internal/llm"
	"github.com/hfarouk/docdex/internal/retriever"
)

const contextBudgetChars = 4000

const systemWithContext = `You are a helpful assistant. Use ONLY the provided context to answer.
If the answer cannot be found in the context, say that you do not know and suggest next steps.
Cite sources inline as [S{N}] using the source numbers provided.
Be concise and directly helpful to the user's intent.`

const systemNoContext = `You are a helpful assistant. Answer clearly and concisely for the user.`

// Source is one ranked retrieval result as shown to the model and the
// caller.
type Source struct {
	Rank         int              `json:"rank"`
	ChunkID      int64            `json:"chunk_id"`
	DocumentID   string           `json:"document_id"`
	DocumentName string           `json:"document_name"`
	PageNum      int              `json:"page_num"`
	Text         string           `json:"text"`
	Scores       retriever.Scores `json:"scores"`
}

// Assistant answers queries, grounded in sources when retrieval fired.
type Assistant struct {
	llm llm.Provider
}

func New(provider llm.Provider) *Assistant {
	return &Assistant{llm: provider}
}

// Answer completes the query. With sources it builds a [S{N}]-labelled
// context block within a character budget; without, it answers freely.
func (a *Assistant) Answer(ctx context.Context, query string, sources []Source) (string, error) {
	var messages []llm.Message
	if len(sources) > 0 {
		messages = []llm.Message{
			{Role: llm.RoleSystem, Content: systemWithContext},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nUser question: %s", buildContext(sources), query)},
		}
	} else {
		messages = []llm.Message{
			{Role: llm.RoleSystem, Content: systemNoContext},
			{Role: llm.RoleUser, Content: query},
		}
	}

	resp, err := a.llm.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("answering query: %w", err)
	}
	return resp.Content, nil
}

// buildContext renders sources as "[S{N}] name page" headers followed by
// the chunk text, stopping before the budget is blown. At least one
// source always goes in, whatever its size.
func buildContext(sources []Source) string {
	var b strings.Builder
	for i, s := range sources {
		block := fmt.Sprintf("[S%d] %s %d\n%s\n\n", s.Rank, s.DocumentName, s.PageNum, strings.TrimSpace(s.Text))
		if i > 0 && b.Len()+len(block) > contextBudgetChars {
			break
		}
		b.WriteString(block)
	}
	return strings.TrimSpace(b.String())
}
