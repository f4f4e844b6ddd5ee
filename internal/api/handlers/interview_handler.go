package handlers

import (
	"net/http"
	"strconv"

	mongorepo "github.com/careerforge/backend/internal/repositories/mongo"
	"github.com/careerforge/backend/internal/services"
	"github.com/careerforge/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

type InterviewHandler struct {
	svc services.InterviewService
}

func NewInterviewHandler(svc services.InterviewService) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

type CreateInterviewRequest struct {
	Type          string `json:"type" binding:"required"`       // technical|hr|behavioral|system-design
	Difficulty    string `json:"difficulty" binding:"required"` // easy|medium|hard
	Duration      int    `json:"duration"`                      // minutes, default 30
	TargetRole    string `json:"target_role"`
	TargetCompany string `json:"target_company"`
}

func (h *InterviewHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Create", "invalid request body", err))
		return
	}

	iv, err := h.svc.Create(c.Request.Context(), userID, services.CreateInput{
		Type:          req.Type,
		Difficulty:    req.Difficulty,
		Duration:      req.Duration,
		TargetRole:    req.TargetRole,
		TargetCompany: req.TargetCompany,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"interview": iv})
}

func (h *InterviewHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)

	out, total, err := h.svc.List(c.Request.Context(), userID, mongorepo.ListFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if limit <= 0 {
		limit = 10
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}

	c.JSON(http.StatusOK, gin.H{
		"interviews": out,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages,
		},
	})
}

func (h *InterviewHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	iv, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"interview": iv})
}

func (h *InterviewHandler) Start(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	res, err := h.svc.Start(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"interview":        res.Interview,
		"current_question": res.FirstQuestion,
		"total_questions":  res.TotalQuestions,
	})
}

func (h *InterviewHandler) NextQuestion(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	res, err := h.svc.NextQuestion(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	if res.Complete {
		c.JSON(http.StatusOK, gin.H{"complete": true, "message": "All questions answered"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"question":        res.Question,
		"question_number": res.QuestionNumber,
		"total_questions": res.TotalQuestions,
	})
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Transcript string `json:"transcript" binding:"required"`
	Duration   int    `json:"duration"` // seconds
}

func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.SubmitAnswer", "invalid request body", err))
		return
	}

	ev, err := h.svc.SubmitAnswer(c.Request.Context(), userID, c.Param("id"), services.SubmitAnswerInput{
		QuestionID: req.QuestionID,
		Transcript: req.Transcript,
		Duration:   req.Duration,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"evaluation": ev})
}

func (h *InterviewHandler) Complete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	overall, err := h.svc.Complete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"evaluation": overall})
}

func (h *InterviewHandler) Cancel(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Interview cancelled"})
}

func (h *InterviewHandler) GetEvaluation(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	res, err := h.svc.GetEvaluation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"overall_evaluation":   res.Overall,
		"question_evaluations": res.QuestionEvaluations,
	})
}

func (h *InterviewHandler) GetMetrics(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	m, err := h.svc.GetMetrics(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"metrics": m})
}
