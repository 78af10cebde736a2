// Package refiner rewrites a query using recent conversation history, so
// follow-ups like "what about the second one" become self-contained.
package refiner

import (
	"context"
	"encoding/json"

	"github.com/hfarouk/docdex/internal/llm"
)

const systemPrompt = `You refine user queries for a RAG system using history. Use recent dialogue to
resolve pronouns and references and add context to the queries for better results;
keep the user's intent unchanged. Return the refined query.`

const (
	maxTurns      = 8
	perMsgCap     = 600
	maxTotalChars = 6000
)

// Refiner wraps an LLM for query refinement.
type Refiner struct {
	llm llm.Provider
}

func New(provider llm.Provider) *Refiner {
	return &Refiner{llm: provider}
}

type refinePayload struct {
	RecentDialogue []llm.Message `json:"recent_dialogue"`
	CurrentQuery   string        `json:"current_query"`
}

// Refine rewrites the query in the light of the trimmed history. Any
// failure returns the original query unchanged; refinement is best
// effort, never a gate.
func (r *Refiner) Refine(ctx context.Context, query string, history []llm.Message) string {
	payload, err := json.Marshal(refinePayload{
		RecentDialogue: trimHistory(history),
		CurrentQuery:   query,
	})
	if err != nil {
		return query
	}

	resp, err := r.llm.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: string(payload)},
		},
		Temperature: 0.0,
	})
	if err != nil || resp.Content == "" {
		return query
	}
	return resp.Content
}

// trimHistory keeps the last maxTurns messages, caps each one, then
// drops the oldest until under the total budget. History is assumed
// oldest-first; clients that send newest-first get the wrong turns
// prioritized, and nothing here can detect that.
func trimHistory(history []llm.Message) []llm.Message {
	if len(history) == 0 {
		return nil
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	out := make([]llm.Message, len(history))
	counts := make([]int, len(history))
	total := 0
	for i, m := range history {
		runes := []rune(m.Content)
		if len(runes) > perMsgCap {
			runes = runes[:perMsgCap]
		}
		out[i] = llm.Message{Role: m.Role, Content: string(runes)}
		counts[i] = len(runes)
		total += len(runes)
	}
	for len(out) > 0 && total > maxTotalChars {
		total -= counts[0]
		out = out[1:]
		counts = counts[1:]
	}
	return out
}
