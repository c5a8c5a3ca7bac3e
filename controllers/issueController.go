package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"civicdesk-be/middlewares"
	"civicdesk-be/services"
)

// IssueController adapts HTTP requests onto the issue service. All
// authorization and lifecycle decisions live in the service and its
// collaborators, never here.
type IssueController struct {
	svc *services.IssueService
}

func NewIssueController(svc *services.IssueService) *IssueController {
	return &IssueController{svc: svc}
}

// ListIssues handles retrieving issues with role scoping, filtering,
// and pagination.
func (ctl *IssueController) ListIssues(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	query := services.ListQuery{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		Department: c.Query("department"),
		Assignee:   c.Query("assignee"),
		Search:     c.Query("search"),
		Sort:       c.DefaultQuery("sort", "newest"),
		Page:       page,
		Limit:      limit,
	}

	list, err := ctl.svc.List(c.Request.Context(), actor, query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetIssue retrieves a single issue by its ID.
func (ctl *IssueController) GetIssue(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	issue, err := ctl.svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, issue)
}

// CreateIssue handles the creation of a new issue report.
func (ctl *IssueController) CreateIssue(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Title       string   `json:"title" binding:"required,max=200"`
		Description string   `json:"description" binding:"required,max=1000"`
		Department  string   `json:"department" binding:"required,max=100"`
		Latitude    *float64 `json:"latitude" binding:"required"`
		Longitude   *float64 `json:"longitude" binding:"required"`
		Address     *string  `json:"address,omitempty"`
		Priority    string   `json:"priority,omitempty"`
		Attachments []string `json:"attachments,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := ctl.svc.Create(c.Request.Context(), actor, services.CreateIssueInput{
		Title:       input.Title,
		Description: input.Description,
		Department:  input.Department,
		Latitude:    *input.Latitude,
		Longitude:   *input.Longitude,
		Address:     input.Address,
		Priority:    input.Priority,
		Attachments: input.Attachments,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, issue)
}

// UpdateIssue applies a partial update, all-or-nothing.
func (ctl *IssueController) UpdateIssue(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Title       *string `json:"title,omitempty"`
		Description *string `json:"description,omitempty"`
		Address     *string `json:"address,omitempty"`
		Status      *string `json:"status,omitempty"`
		Priority    *string `json:"priority,omitempty"`
		Department  *string `json:"department,omitempty"`
		AssignedTo  *string `json:"assignedTo,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := ctl.svc.Update(c.Request.Context(), actor, c.Param("id"), services.UpdatePatch{
		Title:       input.Title,
		Description: input.Description,
		Address:     input.Address,
		Status:      input.Status,
		Priority:    input.Priority,
		Department:  input.Department,
		AssignedTo:  input.AssignedTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, issue)
}

// VerifyIssue appends the citizen verification acknowledgment.
func (ctl *IssueController) VerifyIssue(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Notes *string `json:"notes,omitempty"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	issue, err := ctl.svc.Verify(c.Request.Context(), actor, c.Param("id"), input.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, issue)
}

// DeleteIssue hard-deletes an issue and everything it owns.
func (ctl *IssueController) DeleteIssue(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := ctl.svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

// AddComment attaches a comment to an issue.
func (ctl *IssueController) AddComment(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Content string `json:"content" binding:"required,max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := ctl.svc.AddComment(c.Request.Context(), actor, c.Param("id"), input.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// ListComments returns an issue's comments.
func (ctl *IssueController) ListComments(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	comments, err := ctl.svc.ListComments(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}

// GetIssueAnalytics returns scope-aware analytical data about issues.
func (ctl *IssueController) GetIssueAnalytics(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	analytics, err := ctl.svc.Analytics(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}
