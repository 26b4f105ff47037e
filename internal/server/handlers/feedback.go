package handlers

import (
	"net/http"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/edgard/roastme/internal/database"
)

const (
	maxFeedbackName    = 100
	maxFeedbackMessage = 1000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type feedbackRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// validate applies the contact form rules and returns the first failure.
func (r *feedbackRequest) validate() string {
	trimAll(&r.Name, &r.Email, &r.Message)
	switch {
	case r.Name == "" || r.Email == "" || r.Message == "":
		return "All fields are required"
	case !emailPattern.MatchString(r.Email):
		return "Please provide a valid email address"
	case utf8.RuneCountInString(r.Name) > maxFeedbackName:
		return "Name cannot be more than 100 characters"
	case utf8.RuneCountInString(r.Message) > maxFeedbackMessage:
		return "Message cannot be more than 1000 characters"
	}
	return ""
}

type submissionRequest struct {
	Name    string `json:"name"    binding:"required,min=3,max=50"`
	Email   string `json:"email"   binding:"required,email"`
	Message string `json:"message" binding:"required,max=500"`
}

func (r *submissionRequest) trim() { trimAll(&r.Name, &r.Email, &r.Message) }

// NewFeedbackHandler serves POST /api/feedback.
func NewFeedbackHandler(deps HandlerDeps) gin.HandlerFunc {
	log := deps.Logger.With("handler", "feedback")

	return func(c *gin.Context) {
		var req feedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "All fields are required")
			return
		}
		if msg := req.validate(); msg != "" {
			fail(c, http.StatusBadRequest, msg)
			return
		}

		fb := &database.Feedback{Name: req.Name, Email: req.Email, Message: req.Message}
		if err := deps.Store.CreateFeedback(c.Request.Context(), fb); err != nil {
			fail(c, http.StatusInternalServerError, "Failed to submit feedback. Please try again later.")
			return
		}
		log.InfoContext(c.Request.Context(), "Feedback submitted", "feedback_id", fb.ID)

		if deps.Notifier != nil {
			if err := deps.Notifier.NotifyFeedback(c.Request.Context(), fb); err != nil {
				log.WarnContext(c.Request.Context(), "Feedback stored but admin notification failed", "error", err)
			}
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Thank you for your feedback! We'll get back to you soon.",
			"data": gin.H{
				"id":          fb.ID,
				"name":        fb.Name,
				"submittedAt": fb.SubmittedAt.Format(time.RFC3339),
			},
		})
	}
}

// NewSubmitFormHandler serves POST /api/form/submit.
func NewSubmitFormHandler(deps HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submissionRequest
		if err := bindTrimmed(c, &req); err != nil {
			bindFailed(c, err)
			return
		}

		sub := &database.FormSubmission{
			Name:        req.Name,
			Email:       req.Email,
			Message:     req.Message,
			SubmittedBy: currentUser(c).ID,
		}
		if err := deps.Store.CreateFormSubmission(c.Request.Context(), sub); err != nil {
			fail(c, http.StatusInternalServerError, "Server error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"msg":        "Form submitted successfully",
			"submission": sub,
		})
	}
}

// NewListSubmissionsHandler serves GET /api/form/submissions.
func NewListSubmissionsHandler(deps HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := deps.Store.ListFormSubmissions(c.Request.Context(), currentUser(c).ID)
		if err != nil {
			fail(c, http.StatusInternalServerError, "Server error")
			return
		}
		c.JSON(http.StatusOK, subs)
	}
}
