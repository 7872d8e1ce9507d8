package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"policyqa-backend/models"
)

// Certainty tiers assigned to modal verbs.
const (
	highCertainty   = "high_certainty"
	mediumCertainty = "medium_certainty"
	lowCertainty    = "low_certainty"
)

// modalVerb pairs a modal/epistemic word with its pre-classified tier.
type modalVerb struct {
	word    string
	tier    string
	pattern *regexp.Regexp
}

func newModalVerb(word, tier string) modalVerb {
	return modalVerb{
		word:    word,
		tier:    tier,
		pattern: regexp.MustCompile(`\b` + word + `\b`),
	}
}

// Fixed vocabularies. Order matters: reported matches preserve it.
var (
	modalVerbs = []modalVerb{
		newModalVerb("must", highCertainty),
		newModalVerb("shall", highCertainty),
		newModalVerb("will", highCertainty),
		newModalVerb("required", highCertainty),
		newModalVerb("mandatory", highCertainty),
		newModalVerb("may", lowCertainty),
		newModalVerb("might", lowCertainty),
		newModalVerb("could", lowCertainty),
		newModalVerb("should", mediumCertainty),
		newModalVerb("recommended", mediumCertainty),
	}

	ambiguousPhrases = []string{
		"it depends",
		"may or may not",
		"unclear",
		"ambiguous",
		"not specified",
		"consult",
		"contact",
		"check with",
	}

	legalIndicators = []string{
		"legal action",
		"lawsuit",
		"sue",
		"attorney",
		"lawyer",
		"legal counsel",
		"court",
		"litigation",
	}
)

// ContradictionChecker tests for conflicting information across the chunks
// supporting one answer. It never returns an error: failures degrade to the
// heuristic result.
type ContradictionChecker interface {
	Check(ctx context.Context, answer string, chunks []models.RetrievedChunk) models.ContradictionCheck
}

// PolicyChecker inspects a generated answer and its supporting chunks and
// produces a deterministic trust score plus human-readable warnings. All
// sub-checks are independent; penalties are combined additively. Stateless
// and safe for concurrent use.
type PolicyChecker struct {
	contradictions ContradictionChecker
}

// NewPolicyChecker builds a checker. The contradiction strategy is selected
// once here, not per call: with a generator the LLM-assisted variant is
// used, otherwise the source-diversity heuristic.
func NewPolicyChecker(generator TextGenerator) *PolicyChecker {
	var checker ContradictionChecker = heuristicContradictionChecker{}
	if generator != nil {
		checker = &llmContradictionChecker{generator: generator}
	}
	return &PolicyChecker{contradictions: checker}
}

// CheckPolicy runs every sub-check against the answer and combines the
// results into a ConfidenceReport.
func (p *PolicyChecker) CheckPolicy(ctx context.Context, answer string, chunks []models.RetrievedChunk, query string) *models.ConfidenceReport {
	report := &models.ConfidenceReport{
		AmbiguityCheck:     checkAmbiguity(answer),
		ModalVerbAnalysis:  analyzeModalVerbs(answer),
		LegalAdviceCheck:   checkLegalAdvice(answer, query),
		ContradictionCheck: p.contradictions.Check(ctx, answer, chunks),
	}

	report.ConfidenceScore = calculateConfidence(report)
	report.Warnings = generateWarnings(report)
	report.Recommendations = generateRecommendations(report)

	return report
}

// checkAmbiguity looks for hedging phrases. Each phrase counts once however
// many times it occurs.
func checkAmbiguity(answer string) models.AmbiguityCheck {
	answerLower := strings.ToLower(answer)

	found := make([]string, 0)
	for _, phrase := range ambiguousPhrases {
		if strings.Contains(answerLower, phrase) {
			found = append(found, phrase)
		}
	}

	return models.AmbiguityCheck{
		HasAmbiguity:     len(found) > 0,
		AmbiguousPhrases: found,
		Count:            len(found),
	}
}

// analyzeModalVerbs counts modal-verb occurrences and derives the overall
// certainty by priority: any high-tier word wins over any number of low-tier
// words, low wins over medium. This is a deliberate simplification, not a
// weighted vote; downstream scoring depends on it staying this way.
func analyzeModalVerbs(answer string) models.ModalVerbAnalysis {
	answerLower := strings.ToLower(answer)

	found := make(map[string]models.ModalVerbUsage)
	hasHigh, hasMedium, hasLow := false, false, false

	for _, modal := range modalVerbs {
		count := len(modal.pattern.FindAllString(answerLower, -1))
		if count == 0 {
			continue
		}
		found[modal.word] = models.ModalVerbUsage{
			Count:     count,
			Certainty: modal.tier,
		}
		switch modal.tier {
		case highCertainty:
			hasHigh = true
		case mediumCertainty:
			hasMedium = true
		case lowCertainty:
			hasLow = true
		}
	}

	overall := models.CertaintyNeutral
	switch {
	case hasHigh:
		overall = models.CertaintyHigh
	case hasLow:
		overall = models.CertaintyLow
	case hasMedium:
		overall = models.CertaintyMedium
	}

	return models.ModalVerbAnalysis{
		ModalVerbs:       found,
		OverallCertainty: overall,
	}
}

// checkLegalAdvice matches legal-process terms against the answer and,
// separately, the query. Only answer-side matches set the flag.
func checkLegalAdvice(answer, query string) models.LegalAdviceCheck {
	answerLower := strings.ToLower(answer)
	queryLower := strings.ToLower(query)

	inAnswer := make([]string, 0)
	inQuery := make([]string, 0)
	for _, term := range legalIndicators {
		if strings.Contains(answerLower, term) {
			inAnswer = append(inAnswer, term)
		}
		if strings.Contains(queryLower, term) {
			inQuery = append(inQuery, term)
		}
	}

	check := models.LegalAdviceCheck{
		IsLegalAdvice:      len(inAnswer) > 0,
		LegalTermsInAnswer: inAnswer,
		LegalTermsInQuery:  inQuery,
	}
	if check.IsLegalAdvice {
		rec := "Consult legal services office"
		check.Recommendation = &rec
	}
	return check
}

// calculateConfidence applies the fixed additive penalty model: start at
// 1.0, subtract per triggered condition, clamp to [0,1], round to 2
// decimals. The constants and their ordering are load-bearing for
// behavioral parity; do not tune them independently.
func calculateConfidence(report *models.ConfidenceReport) float64 {
	confidence := 1.0

	if report.AmbiguityCheck.HasAmbiguity {
		confidence -= 0.15 * float64(report.AmbiguityCheck.Count)
	}

	switch report.ModalVerbAnalysis.OverallCertainty {
	case models.CertaintyLow:
		confidence -= 0.2
	case models.CertaintyMedium:
		confidence -= 0.1
	}

	if report.ContradictionCheck.HasContradictions {
		confidence -= 0.3
	}

	if report.LegalAdviceCheck.IsLegalAdvice {
		confidence -= 0.2
	}

	confidence = math.Max(0.0, math.Min(1.0, confidence))
	return math.Round(confidence*100) / 100
}

// generateWarnings maps each triggered condition to its fixed warning
// string. The low-confidence warning always comes last.
func generateWarnings(report *models.ConfidenceReport) []string {
	warnings := make([]string, 0)

	if report.AmbiguityCheck.HasAmbiguity {
		warnings = append(warnings, "This answer contains ambiguous language. Consider consulting official sources.")
	}
	if report.ModalVerbAnalysis.OverallCertainty == models.CertaintyLow {
		warnings = append(warnings, "The policy contains language indicating flexibility or uncertainty.")
	}
	if report.ContradictionCheck.HasContradictions {
		warnings = append(warnings, "Potential contradictions detected across source documents.")
	}
	if report.LegalAdviceCheck.IsLegalAdvice {
		warnings = append(warnings, "This topic may involve legal matters. Consult the legal services office.")
	}
	if report.ConfidenceScore < 0.5 {
		warnings = append(warnings, "Low confidence answer. Please verify with official university office.")
	}

	return warnings
}

// generateRecommendations parallels generateWarnings with a distinct rule
// set. Only the heuristic contradiction check ever sets MultipleSources, so
// the review-all-sources message is a heuristic-mode signal.
func generateRecommendations(report *models.ConfidenceReport) []string {
	recommendations := make([]string, 0)

	if report.AmbiguityCheck.HasAmbiguity {
		recommendations = append(recommendations, "Contact the relevant university department for clarification.")
	}
	if report.ContradictionCheck.MultipleSources {
		recommendations = append(recommendations, fmt.Sprintf(
			"This answer references %d different policy documents. Review all sources for complete information.",
			report.ContradictionCheck.SourceCount))
	}
	if report.LegalAdviceCheck.IsLegalAdvice {
		recommendations = append(recommendations, "Speak with the university legal services office for legal matters.")
	}

	return recommendations
}

// heuristicContradictionChecker never claims a contradiction. It only
// reports source diversity: more than one distinct filename lowers the base
// confidence to 0.8 as a "multiple sources" signal.
type heuristicContradictionChecker struct{}

func (heuristicContradictionChecker) Check(_ context.Context, _ string, chunks []models.RetrievedChunk) models.ContradictionCheck {
	if len(chunks) < 2 {
		return models.ContradictionCheck{
			HasContradictions: false,
			Confidence:        1.0,
		}
	}

	seen := make(map[string]bool)
	sources := make([]string, 0)
	for _, chunk := range chunks {
		filename := chunk.Metadata.Filename
		if !seen[filename] {
			seen[filename] = true
			sources = append(sources, filename)
		}
	}

	confidence := 1.0
	if len(sources) > 1 {
		confidence = 0.8
	}

	return models.ContradictionCheck{
		HasContradictions: false,
		MultipleSources:   len(sources) > 1,
		SourceCount:       len(sources),
		Sources:           sources,
		Confidence:        confidence,
	}
}

// llmContradictionChecker asks the text service to judge contradictions
// across up to 5 supporting chunks. Any service or parse failure falls back
// to the heuristic; this check is never allowed to fail a request.
type llmContradictionChecker struct {
	generator TextGenerator
}

const contradictionPromptFormat = `You are a policy-checker assistant. Given an answer and its supporting snippets, detect if there are contradictions across snippets.

Answer: %s

Supporting snippets:
%s

Analyze:
1. Are there contradictions between the snippets?
2. Do the snippets provide conflicting information?
3. Is the answer consistent with all snippets?

Respond in this format:
HAS_CONTRADICTIONS: [YES/NO]
CONFIDENCE: [0.0-1.0]
EXPLANATION: [brief explanation]`

func (c *llmContradictionChecker) Check(ctx context.Context, answer string, chunks []models.RetrievedChunk) models.ContradictionCheck {
	if len(chunks) < 2 {
		return heuristicContradictionChecker{}.Check(ctx, answer, chunks)
	}

	limited := chunks
	if len(limited) > 5 {
		limited = limited[:5]
	}
	parts := make([]string, 0, len(limited))
	for i, chunk := range limited {
		parts = append(parts, fmt.Sprintf("Source %d (%s, page %d):\n%s",
			i+1, chunk.Metadata.Filename, chunk.Metadata.PageNumber, chunk.Text))
	}

	prompt := fmt.Sprintf(contradictionPromptFormat, answer, strings.Join(parts, "\n\n"))

	reply, err := c.generator.Complete(ctx, prompt, 0.1, 300)
	if err != nil {
		log.Printf("Warning: contradiction check failed, falling back to heuristic: %v", err)
		return heuristicContradictionChecker{}.Check(ctx, answer, chunks)
	}

	return parseContradictionReply(reply)
}

// parseContradictionReply extracts the structured three-line verdict from
// the model's free-text reply. Free-text parsing is fragile by nature, so
// every missing or malformed piece has a defined fallback instead of an
// error: that behavior is part of the scoring contract.
func parseContradictionReply(reply string) models.ContradictionCheck {
	lines := strings.Split(reply, "\n")

	hasContradictions := len(lines) > 0 && strings.Contains(lines[0], "YES")

	confidence := 0.7
	for _, line := range lines {
		if !strings.Contains(line, "CONFIDENCE") {
			continue
		}
		if _, value, ok := strings.Cut(line, ":"); ok {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				confidence = parsed
			}
		}
		break
	}

	explanation := ""
	for _, line := range lines {
		if !strings.Contains(line, "EXPLANATION") {
			continue
		}
		if _, value, ok := strings.Cut(line, ":"); ok {
			explanation = strings.TrimSpace(value)
		}
		break
	}

	return models.ContradictionCheck{
		HasContradictions: hasContradictions,
		Confidence:        confidence,
		Explanation:       explanation,
	}
}
