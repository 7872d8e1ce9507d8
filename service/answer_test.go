package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"policyqa-backend/models"
)

func TestGenerateAnswer(t *testing.T) {
	gen := &fakeGenerator{reply: "Tuition is due June 1.\n\nPer the handbook (handbook.pdf — page 3, para 5), payment is due on the first day of term."}
	a := NewAnswerGenerator(gen, "gemini-1.5-flash", 0.1, 2000)

	citations := []models.Citation{{Filename: "handbook.pdf", PageNumber: 3, ChunkID: 5}}
	result := a.GenerateAnswer(context.Background(), "when is tuition due", "[DOC: handbook.pdf | page: 3 | paragraph: 5]\ntext\n", citations)

	if result.Error != "" {
		t.Fatalf("unexpected error in result: %q", result.Error)
	}
	if result.Answer != gen.reply {
		t.Errorf("answer mismatch: %q", result.Answer)
	}
	if result.Summary != "Tuition is due June 1." {
		t.Errorf("summary mismatch: %q", result.Summary)
	}
	if !strings.HasPrefix(result.DetailedAnswer, "Per the handbook") {
		t.Errorf("detailed answer mismatch: %q", result.DetailedAnswer)
	}
	if result.Model != "gemini-1.5-flash" {
		t.Errorf("model mismatch: %q", result.Model)
	}
	if len(result.Citations) != 1 {
		t.Errorf("citations must pass through, got %d", len(result.Citations))
	}
	if result.TokensUsed == 0 {
		t.Error("expected a token estimate")
	}
}

func TestGenerateAnswerPromptContainsQueryAndContext(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	a := NewAnswerGenerator(gen, "m", 0.1, 100)

	a.GenerateAnswer(context.Background(), "can I defer enrollment", "CONTEXT-BLOCK", nil)

	if !strings.Contains(gen.lastPrompt, "can I defer enrollment") {
		t.Error("prompt must contain the query")
	}
	if !strings.Contains(gen.lastPrompt, "--- SNIPPETS START ---\nCONTEXT-BLOCK\n--- SNIPPETS END ---") {
		t.Error("prompt must wrap the context in snippet markers")
	}
	if !strings.Contains(gen.lastPrompt, "[DOC: {filename} | page: {page} | paragraph: {p}]") {
		t.Error("prompt must describe the snippet metadata format")
	}
}

func TestGenerateAnswerFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model overloaded")}
	a := NewAnswerGenerator(gen, "m", 0.1, 100)

	citations := []models.Citation{{Filename: "handbook.pdf"}}
	result := a.GenerateAnswer(context.Background(), "q", "ctx", citations)

	if result.Error != "model overloaded" {
		t.Errorf("expected error recorded, got %q", result.Error)
	}
	if result.Answer != "Error generating answer: model overloaded" {
		t.Errorf("expected error payload in answer, got %q", result.Answer)
	}
	if len(result.Citations) != 1 {
		t.Error("citations must survive a failed generation")
	}
}

func TestSplitAnswer(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		summary  string
		detailed string
	}{
		{
			name:     "blank line separator",
			answer:   "Short summary.\n\nLonger detail here.",
			summary:  "Short summary.",
			detailed: "Longer detail here.",
		},
		{
			name:     "single newline falls back to first line",
			answer:   "Summary line.\nDetail line.",
			summary:  "Summary line.",
			detailed: "Detail line.",
		},
		{
			name:     "one line only",
			answer:   "Just one line.",
			summary:  "Just one line.",
			detailed: "Just one line.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, detailed := splitAnswer(tt.answer)
			if summary != tt.summary {
				t.Errorf("summary: got %q, want %q", summary, tt.summary)
			}
			if detailed != tt.detailed {
				t.Errorf("detailed: got %q, want %q", detailed, tt.detailed)
			}
		})
	}
}

func TestGenerateFollowups(t *testing.T) {
	gen := &fakeGenerator{reply: "1. What is the refund deadline?\nNot a question line\n2) Can I appeal a late fee?\n- How do I contact the bursar?\n3. A fourth question?"}
	a := NewAnswerGenerator(gen, "m", 0.1, 100)

	questions := a.GenerateFollowups(context.Background(), "q", "answer")
	want := []string{
		"What is the refund deadline?",
		"Can I appeal a late fee?",
		"How do I contact the bursar?",
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d: %v", len(questions), questions)
	}
	for i, q := range want {
		if questions[i] != q {
			t.Errorf("question %d: got %q, want %q", i, questions[i], q)
		}
	}
}

func TestGenerateFollowupsFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	a := NewAnswerGenerator(gen, "m", 0.1, 100)

	questions := a.GenerateFollowups(context.Background(), "q", "answer")
	if len(questions) != 0 {
		t.Fatalf("failures must yield an empty list, got %v", questions)
	}
}
