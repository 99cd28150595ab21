package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shifted/models"
	"shifted/store"
)

type QuestionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        string `json:"year"`
	Category    string `json:"category"`
}

// CreateQuestion stores a forum question and returns the created
// entity directly; live consumers pick it up through their own store
// subscriptions rather than a process-wide notification channel.
func (h *Handler) CreateQuestion(c *gin.Context) {
	userID := c.GetString("userId")

	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	question := models.Question{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   userID,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Category:    req.Category,
		CreatedAt:   time.Now().UTC(),
	}

	id, err := h.store.Add(ctx, questionsCollection, question.Fields())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create question"})
		return
	}

	question.ID = id
	c.JSON(http.StatusCreated, question)
}

func (h *Handler) GetQuestions(c *gin.Context) {
	ctx, cancel := h.requestContext()
	defer cancel()

	docs, err := h.store.Query(ctx, store.Query{
		Collection: questionsCollection,
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch questions"})
		return
	}

	questions := make([]models.Question, 0, len(docs))
	for _, doc := range docs {
		if q, ok := models.QuestionFromDoc(doc); ok {
			questions = append(questions, q)
		}
	}

	c.JSON(http.StatusOK, questions)
}

type AnswerRequest struct {
	Text string `json:"text" binding:"required"`
}

func answersPath(questionID string) string {
	return questionsCollection + "/" + questionID + "/answers"
}

func (h *Handler) CreateAnswer(c *gin.Context) {
	userID := c.GetString("userId")
	questionID := c.Param("id")

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	if _, err := h.store.Get(ctx, questionsCollection+"/"+questionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	answer := models.Answer{
		CreatorID: userID,
		Text:      req.Text,
		CreatedAt: time.Now().UTC(),
	}

	id, err := h.store.Add(ctx, answersPath(questionID), answer.Fields())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create answer"})
		return
	}

	answer.ID = id
	c.JSON(http.StatusCreated, answer)
}

// GetAnswers lists a question's answers, most upvoted first.
func (h *Handler) GetAnswers(c *gin.Context) {
	questionID := c.Param("id")

	ctx, cancel := h.requestContext()
	defer cancel()

	docs, err := h.store.Query(ctx, store.Query{
		Collection: answersPath(questionID),
		OrderBy:    "upvotes",
		Descending: true,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch answers"})
		return
	}

	answers := make([]models.Answer, 0, len(docs))
	for _, doc := range docs {
		if a, ok := models.AnswerFromDoc(doc); ok {
			answers = append(answers, a)
		}
	}

	c.JSON(http.StatusOK, answers)
}

func (h *Handler) UpvoteAnswer(c *gin.Context) {
	questionID := c.Param("id")
	answerID := c.Param("answerId")

	ctx, cancel := h.requestContext()
	defer cancel()

	path := answersPath(questionID) + "/" + answerID
	doc, err := h.store.Get(ctx, path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Answer not found"})
		return
	}
	answer, ok := models.AnswerFromDoc(doc)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Answer not found"})
		return
	}

	if err := h.store.Set(ctx, path, store.Fields{"upvotes": answer.Upvotes + 1}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upvote"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"upvotes": answer.Upvotes + 1})
}
