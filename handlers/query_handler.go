package handlers

import (
	"fmt"
	"log"
	"net/http"

	"policyqa-backend/models"
	"policyqa-backend/repository"
	"policyqa-backend/service"

	"github.com/gin-gonic/gin"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query            string `json:"query" binding:"required"`
	TopK             int    `json:"top_k"`
	FilterByDocument string `json:"filter_by_document"`
	FilterByType     string `json:"filter_by_type"`
}

// QueryResponse is the full answer payload returned to the caller. It is
// always completely filled in: on failure the honest low-confidence shape is
// returned instead of a partial one.
type QueryResponse struct {
	Answer            string                 `json:"answer"`
	Citations         []models.Citation      `json:"citations"`
	ConfidenceScore   float64                `json:"confidence_score"`
	Warnings          []string               `json:"warnings"`
	Recommendations   []string               `json:"recommendations"`
	FollowupQuestions []string               `json:"followup_questions,omitempty"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	Query     string  `json:"query" binding:"required"`
	Answer    string  `json:"answer" binding:"required"`
	IsCorrect *bool   `json:"is_correct" binding:"required"`
	Comment   *string `json:"comment"`
}

// QueryHandler handles the question-answering surface: query, feedback and
// stats.
type QueryHandler struct {
	retriever    *service.Retriever
	answers      *service.AnswerGenerator
	checker      *service.PolicyChecker
	chunkRepo    *repository.PolicyChunkRepository
	jobs         *repository.UploadJobStore
	feedbackRepo *repository.FeedbackRepository
}

// NewQueryHandler creates a new query handler. feedbackRepo may be nil, in
// which case audit logging is disabled.
func NewQueryHandler(
	retriever *service.Retriever,
	answers *service.AnswerGenerator,
	checker *service.PolicyChecker,
	chunkRepo *repository.PolicyChunkRepository,
	jobs *repository.UploadJobStore,
	feedbackRepo *repository.FeedbackRepository,
) *QueryHandler {
	return &QueryHandler{
		retriever:    retriever,
		answers:      answers,
		checker:      checker,
		chunkRepo:    chunkRepo,
		jobs:         jobs,
		feedbackRepo: feedbackRepo,
	}
}

// Query handles POST /api/query: retrieve, compose context, generate an
// answer, score it, and return the whole package. Empty retrieval
// short-circuits to the fixed "no information" response without ever
// calling the generator.
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	ctx := c.Request.Context()

	chunks, err := h.retriever.Retrieve(ctx, req.Query, req.TopK, req.FilterByDocument, req.FilterByType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": fmt.Sprintf("Query processing failed: %v", err),
			},
		})
		return
	}

	if len(chunks) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": QueryResponse{
				Answer:          "I don't have any information to answer this question. Please upload relevant policy documents first.",
				Citations:       []models.Citation{},
				ConfidenceScore: 0.0,
				Warnings:        []string{"No relevant documents found"},
				Recommendations: []string{"Upload university policy documents to get started"},
				Metadata:        map[string]interface{}{"chunks_retrieved": 0},
			},
		})
		return
	}

	chunks = h.retriever.Rerank(ctx, req.Query, chunks)
	context := h.retriever.FormatContext(chunks)
	citations := h.retriever.Citations(chunks)

	result := h.answers.GenerateAnswer(ctx, req.Query, context, citations)
	report := h.checker.CheckPolicy(ctx, result.Answer, chunks, req.Query)
	followups := h.answers.GenerateFollowups(ctx, req.Query, result.Answer)

	h.audit(c, &models.FeedbackEntry{
		EntryType:  "query",
		Query:      req.Query,
		Answer:     result.Answer,
		Confidence: &report.ConfidenceScore,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": QueryResponse{
			Answer:            result.Answer,
			Citations:         result.Citations,
			ConfidenceScore:   report.ConfidenceScore,
			Warnings:          report.Warnings,
			Recommendations:   report.Recommendations,
			FollowupQuestions: followups,
			Metadata: map[string]interface{}{
				"chunks_retrieved": len(chunks),
				"tokens_used":      result.TokensUsed,
				"model":            result.Model,
				"policy_checks": gin.H{
					"ambiguity":      report.AmbiguityCheck,
					"modal_verbs":    report.ModalVerbAnalysis,
					"contradictions": report.ContradictionCheck,
					"legal_advice":   report.LegalAdviceCheck,
				},
			},
		},
	})
}

// SubmitFeedback handles POST /api/feedback.
func (h *QueryHandler) SubmitFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	if h.feedbackRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FEEDBACK_DISABLED",
				"message": "Feedback storage is not configured",
			},
		})
		return
	}

	entry := &models.FeedbackEntry{
		EntryType: "user_feedback",
		Query:     req.Query,
		Answer:    req.Answer,
		IsCorrect: req.IsCorrect,
		Comment:   req.Comment,
	}
	if err := h.feedbackRepo.Create(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FEEDBACK_FAILED",
				"message": fmt.Sprintf("Failed to submit feedback: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Feedback submitted successfully",
		},
	})
}

// GetStats handles GET /api/stats.
func (h *QueryHandler) GetStats(c *gin.Context) {
	count, err := h.chunkRepo.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STATS_FAILED",
				"message": fmt.Sprintf("Failed to get statistics: %v", err),
			},
		})
		return
	}

	processing, completed, failed := h.jobs.Counts()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"vector_db": gin.H{
				"total_chunks": count,
			},
			"upload_jobs": gin.H{
				"total":      h.jobs.Total(),
				"processing": processing,
				"completed":  completed,
				"failed":     failed,
			},
		},
	})
}

// audit records a query audit entry; failures are logged, never surfaced.
func (h *QueryHandler) audit(c *gin.Context, entry *models.FeedbackEntry) {
	if h.feedbackRepo == nil {
		return
	}
	if err := h.feedbackRepo.Create(c.Request.Context(), entry); err != nil {
		log.Printf("Warning: failed to write audit entry: %v", err)
	}
}
