package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/hfarouk/docdex/internal/llm"
)

type stubProvider struct {
	content string
	last    llm.CompletionRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.last = req
	return &llm.CompletionResponse{Content: s.content}, nil
}

func TestAnswerWithSourcesCitesContext(t *testing.T) {
	stub := &stubProvider{content: "Leases expire after 300 seconds [S1]."}
	a := New(stub)

	answer, err := a.Answer(context.Background(), "when do leases expire?", []Source{
		{Rank: 1, ChunkID: 7, DocumentName: "ops.pdf", PageNum: 3, Text: "Leases last 300 seconds."},
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer == "" {
		t.Fatal("empty answer")
	}

	user := stub.last.Messages[1].Content
	if !strings.Contains(user, "[S1] ops.pdf 3") {
		t.Errorf("context missing source header: %q", user)
	}
	if !strings.Contains(user, "Leases last 300 seconds.") {
		t.Errorf("context missing chunk text: %q", user)
	}
	if !strings.Contains(stub.last.Messages[0].Content, "ONLY the provided context") {
		t.Error("grounded system prompt not used")
	}
}

func TestAnswerWithoutSources(t *testing.T) {
	stub := &stubProvider{content: "hi"}
	a := New(stub)

	if _, err := a.Answer(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if strings.Contains(stub.last.Messages[0].Content, "context") {
		t.Error("ungrounded prompt expected without sources")
	}
	if stub.last.Messages[1].Content != "hello" {
		t.Errorf("user message = %q", stub.last.Messages[1].Content)
	}
}

func TestBuildContextHonorsBudget(t *testing.T) {
	big := strings.Repeat("a", 3000)
	sources := []Source{
		{Rank: 1, DocumentName: "a.pdf", PageNum: 1, Text: big},
		{Rank: 2, DocumentName: "b.pdf", PageNum: 1, Text: big},
		{Rank: 3, DocumentName: "c.pdf", PageNum: 1, Text: big},
	}
	ctx := buildContext(sources)
	if !strings.Contains(ctx, "[S1]") {
		t.Error("first source always included")
	}
	if strings.Contains(ctx, "[S2]") || strings.Contains(ctx, "[S3]") {
		t.Error("budget overflow: later sources should be dropped")
	}
}
