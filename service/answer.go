package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"policyqa-backend/models"
)

// AnswerResult is the answer generator's output. On generation failure the
// Answer field carries an error-shaped payload and Error is set; the result
// is always well-formed either way.
type AnswerResult struct {
	Answer         string            `json:"answer"`
	Summary        string            `json:"summary,omitempty"`
	DetailedAnswer string            `json:"detailed_answer,omitempty"`
	Citations      []models.Citation `json:"citations"`
	Model          string            `json:"model,omitempty"`
	TokensUsed     int               `json:"tokens_used,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// AnswerGenerator produces citation-backed answers from retrieved context.
type AnswerGenerator struct {
	generator   TextGenerator
	modelName   string
	temperature float32
	maxTokens   int32
}

// NewAnswerGenerator creates an answer generator bound to one model
// configuration.
func NewAnswerGenerator(generator TextGenerator, modelName string, temperature float32, maxTokens int32) *AnswerGenerator {
	return &AnswerGenerator{
		generator:   generator,
		modelName:   modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

const answerSystemPrompt = `You are a helpful assistant that answers questions about university policies and regulations.

Your responsibilities:
1. Answer questions ONLY using the provided document snippets
2. First provide a clear, direct summary in your own words that directly addresses the question
3. Then provide detailed information with explicit inline citations in the format: (filename — page X, para Y)
4. If the answer is not contained in the snippets, respond: "I don't know — please consult the official office" and suggest the appropriate office to contact
5. Be precise and legally accurate
6. Quote relevant policy text when appropriate
7. If information is ambiguous or contradictory, clearly state this

Guidelines:
- Start with a concise summary that directly answers the user's question
- Then provide supporting details with citations
- Always cite your sources inline
- Use professional, clear language
- Never make assumptions beyond the provided text
- If unsure, acknowledge uncertainty

Response Format:
[Brief summary in your own words addressing the question]

[Detailed explanation with citations and relevant policy quotes]`

// buildPrompt assembles the full generation prompt. The snippet metadata tag
// described here must match what FormatContext emits byte for byte: the
// model is told to cite using that exact filename/page format.
func (a *AnswerGenerator) buildPrompt(query, context string) string {
	return fmt.Sprintf(`%s

Use ONLY the provided snippets below to answer the question. Each snippet includes metadata in this format:
[DOC: {filename} | page: {page} | paragraph: {p}]

IMPORTANT: Structure your answer as follows:
1. Start with a clear, concise summary (2-3 sentences) in your own words that directly answers: "%s"
2. Then provide detailed information with citations inline like: (filename — page X, para Y)

Snippets:
--- SNIPPETS START ---
%s
--- SNIPPETS END ---

Question: %s

Answer:`, answerSystemPrompt, query, context, query)
}

// GenerateAnswer answers the query from the formatted context. A failed
// generation call is captured into the result payload rather than returned
// as an error: the caller always gets a complete, honest shape.
func (a *AnswerGenerator) GenerateAnswer(ctx context.Context, query, context string, citations []models.Citation) *AnswerResult {
	prompt := a.buildPrompt(query, context)

	answer, err := a.generator.Complete(ctx, prompt, a.temperature, a.maxTokens)
	if err != nil {
		return &AnswerResult{
			Answer:    fmt.Sprintf("Error generating answer: %v", err),
			Citations: citations,
			Error:     err.Error(),
		}
	}

	summary, detailed := splitAnswer(answer)

	return &AnswerResult{
		Answer:         answer,
		Summary:        summary,
		DetailedAnswer: detailed,
		Citations:      citations,
		Model:          a.modelName,
		TokensUsed:     len(strings.Fields(prompt)) + len(strings.Fields(answer)),
	}
}

// splitAnswer separates the summary paragraph from the detailed body. The
// prompt asks for a blank line between them; if the model didn't comply the
// first line serves as the summary.
func splitAnswer(answer string) (summary, detailed string) {
	if before, after, ok := strings.Cut(answer, "\n\n"); ok {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}

	lines := strings.SplitN(answer, "\n", 2)
	summary = strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		detailed = strings.TrimSpace(lines[1])
	} else {
		detailed = answer
	}
	return summary, detailed
}

// GenerateFollowups suggests up to three follow-up questions for the given
// exchange. This is a secondary nicety: any failure is absorbed and yields
// an empty list.
func (a *AnswerGenerator) GenerateFollowups(ctx context.Context, query, answer string) []string {
	prompt := fmt.Sprintf(`Based on this Q&A about university policies, suggest 3 relevant follow-up questions a student might ask:

Question: %s
Answer: %s

Generate 3 short, specific follow-up questions (one per line):`, query, answer)

	reply, err := a.generator.Complete(ctx, prompt, 0.7, 200)
	if err != nil {
		log.Printf("Warning: follow-up question generation failed: %v", err)
		return []string{}
	}

	questions := make([]string, 0, 3)
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "?") {
			continue
		}
		line = strings.TrimLeft(line, "0123456789.)-• ")
		questions = append(questions, line)
		if len(questions) == 3 {
			break
		}
	}
	return questions
}
