package models

// AmbiguityCheck records hedging language found in an answer. Each phrase
// counts once regardless of how often it occurs.
type AmbiguityCheck struct {
	HasAmbiguity     bool     `json:"has_ambiguity"`
	AmbiguousPhrases []string `json:"ambiguous_phrases"`
	Count            int      `json:"count"`
}

// ModalVerbUsage is the occurrence count and certainty tier for one modal verb.
type ModalVerbUsage struct {
	Count     int    `json:"count"`
	Certainty string `json:"certainty"` // "high_certainty", "medium_certainty", "low_certainty"
}

// Certainty tiers for the overall modal analysis.
const (
	CertaintyNeutral = "neutral"
	CertaintyLow     = "low"
	CertaintyMedium  = "medium"
	CertaintyHigh    = "high"
)

// ModalVerbAnalysis classifies an answer's certainty from its modal verbs.
type ModalVerbAnalysis struct {
	ModalVerbs       map[string]ModalVerbUsage `json:"modal_verbs"`
	OverallCertainty string                    `json:"overall_certainty"`
}

// LegalAdviceCheck flags answers that stray into legal-process territory.
// Only terms found in the answer set the flag; query-side matches are
// reported but advisory.
type LegalAdviceCheck struct {
	IsLegalAdvice      bool     `json:"is_legal_advice"`
	LegalTermsInAnswer []string `json:"legal_terms_in_answer"`
	LegalTermsInQuery  []string `json:"legal_terms_in_query"`
	Recommendation     *string  `json:"recommendation"`
}

// ContradictionCheck is the result of either contradiction strategy. The
// heuristic variant fills the source-diversity fields; the LLM variant fills
// Explanation.
type ContradictionCheck struct {
	HasContradictions bool     `json:"has_contradictions"`
	Confidence        float64  `json:"confidence"`
	MultipleSources   bool     `json:"multiple_sources,omitempty"`
	SourceCount       int      `json:"source_count,omitempty"`
	Sources           []string `json:"sources,omitempty"`
	Explanation       string   `json:"explanation,omitempty"`
}

// ConfidenceReport is the scoring engine's full output for one answer.
// Computed fresh per query, never persisted. Warnings and Recommendations
// may be empty but are never nil.
type ConfidenceReport struct {
	AmbiguityCheck     AmbiguityCheck     `json:"ambiguity_check"`
	ModalVerbAnalysis  ModalVerbAnalysis  `json:"modal_verb_analysis"`
	LegalAdviceCheck   LegalAdviceCheck   `json:"legal_advice_check"`
	ContradictionCheck ContradictionCheck `json:"contradiction_check"`
	ConfidenceScore    float64            `json:"confidence_score"`
	Warnings           []string           `json:"warnings"`
	Recommendations    []string           `json:"recommendations"`
}
