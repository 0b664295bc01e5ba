package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"civicgrid-be/models"
	"civicgrid-be/services"
	"civicgrid-be/stores"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueController serves the citizen-facing issue endpoints on top of the
// lifecycle service.
type IssueController struct {
	lifecycle *services.Lifecycle
	issues    stores.IssueStore
}

// NewIssueController wires the issue endpoints.
func NewIssueController(lifecycle *services.Lifecycle, issues stores.IssueStore) *IssueController {
	return &IssueController{lifecycle: lifecycle, issues: issues}
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return primitive.NilObjectID, false
	}
	objID, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, false
	}
	return objID, true
}

func currentRole(c *gin.Context) models.Role {
	roleVal, exists := c.Get("user_role")
	if !exists {
		return ""
	}
	roleStr, _ := roleVal.(string)
	return models.Role(roleStr)
}

func issueIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	issueID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return primitive.NilObjectID, false
	}
	return issueID, true
}

// CreateIssue handles the creation of a new issue
func (ic *IssueController) CreateIssue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Title       string  `json:"title" binding:"required,max=200"`
		Description string  `json:"description" binding:"required,max=1000"`
		Category    string  `json:"category" binding:"required"`
		Location    struct {
			Name      string  `json:"name" binding:"required,max=200"`
			Latitude  float64 `json:"latitude" binding:"required"`
			Longitude float64 `json:"longitude" binding:"required"`
		} `json:"location" binding:"required"`
		Tags        []string            `json:"tags,omitempty"`
		Images      []models.Attachment `json:"images,omitempty"`
		Documents   []models.Attachment `json:"documents,omitempty"`
		IsAnonymous bool                `json:"isAnonymous,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, verdict, err := ic.lifecycle.Create(ctx, services.CreateInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    models.IssueCategory(input.Category),
		Location: models.Location{
			Name: input.Location.Name,
			Coordinates: models.Coordinates{
				Latitude:  input.Location.Latitude,
				Longitude: input.Location.Longitude,
			},
		},
		Tags:        input.Tags,
		Images:      input.Images,
		Documents:   input.Documents,
		IsAnonymous: input.IsAnonymous,
		ReportedBy:  userID,
	})
	if err != nil {
		if !verdict.Accepted() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Issue rejected", "reason": verdict.Reason})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"issue": issue, "ml": verdict})
}

// GetAllIssues handles retrieving issues with filtering and pagination
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := stores.IssueFilter{
		Search:     c.Query("search"),
		PublicOnly: true,
	}
	if status := c.Query("status"); status != "" && status != "all" {
		filter.Status = models.IssueStatus(status)
	}
	if category := c.Query("category"); category != "" && category != "all" {
		filter.Category = models.IssueCategory(category)
	}
	if priority := c.Query("priority"); priority != "" {
		filter.Priority = models.IssuePriority(priority)
	}
	if assignedTo := c.Query("assignedTo"); assignedTo != "" {
		if objID, err := primitive.ObjectIDFromHex(assignedTo); err == nil {
			filter.AssignedTo = &objID
		}
	}
	if reportedBy := c.Query("reportedBy"); reportedBy != "" {
		if objID, err := primitive.ObjectIDFromHex(reportedBy); err == nil {
			filter.ReportedBy = &objID
		}
	}
	if latStr, lngStr := c.Query("latitude"), c.Query("longitude"); latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr == nil && lngErr == nil {
			radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "5000"), 64)
			if err != nil || radius <= 0 {
				radius = 5000
			}
			filter.Near = &stores.GeoNear{Latitude: lat, Longitude: lng, RadiusMeters: radius}
		}
	}

	sort := stores.IssueSort{
		Field: c.DefaultQuery("sortBy", "createdAt"),
		Desc:  c.DefaultQuery("sortOrder", "desc") == "desc",
	}

	issues, total, err := ic.issues.Find(ctx, filter, sort, stores.Page{Number: page, Size: limit})
	if err != nil {
		respondError(c, err)
		return
	}

	if limit < 1 || limit > 100 {
		limit = 20
	}
	totalPages := (total + int64(limit) - 1) / int64(limit)

	c.JSON(http.StatusOK, gin.H{
		"issues":      issues,
		"totalIssues": total,
		"totalPages":  totalPages,
		"currentPage": page,
	})
}

// GetIssue retrieves an issue by its ID
func (ic *IssueController) GetIssue(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, err := ic.issues.FindByID(ctx, issueID)
	if err != nil {
		respondError(c, err)
		return
	}

	userHasVoted := false
	if userID, exists := c.Get("user_id"); exists {
		if objID, err := primitive.ObjectIDFromHex(userID.(string)); err == nil {
			userHasVoted = issue.HasUpvoted(objID)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"issue":        issue,
		"votes":        len(issue.Upvotes),
		"userHasVoted": userHasVoted,
	})
}

// UpdateIssue lets the reporter or an admin edit issue content. Priority,
// status, assignment and the location coordinates are not editable here.
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Title       *string             `json:"title,omitempty"`
		Description *string             `json:"description,omitempty"`
		Tags        []string            `json:"tags,omitempty"`
		Images      []models.Attachment `json:"images,omitempty"`
		IsPublic    *bool               `json:"isPublic,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, err := ic.issues.FindByID(ctx, issueID)
	if err != nil {
		respondError(c, err)
		return
	}

	if currentRole(c) != models.RoleAdmin && issue.ReportedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to update this issue"})
		return
	}

	if input.Title != nil {
		issue.Title = *input.Title
	}
	if input.Description != nil {
		issue.Description = *input.Description
	}
	if input.Tags != nil {
		issue.Tags = input.Tags
	}
	if input.Images != nil {
		issue.Images = input.Images
	}
	if input.IsPublic != nil {
		issue.IsPublic = *input.IsPublic
	}

	if err := ic.issues.Update(ctx, issue); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

// DeleteIssue lets the reporter or an admin delete an issue
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, err := ic.issues.FindByID(ctx, issueID)
	if err != nil {
		respondError(c, err)
		return
	}

	if currentRole(c) != models.RoleAdmin && issue.ReportedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to delete this issue"})
		return
	}

	if err := ic.issues.DeleteByID(ctx, issueID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

// UpvoteIssue adds the user's vote; voting twice changes nothing.
func (ic *IssueController) UpvoteIssue(c *gin.Context) {
	ic.vote(c, ic.lifecycle.Upvote, true)
}

// RemoveUpvote withdraws the user's vote; withdrawing an absent vote is a
// no-op.
func (ic *IssueController) RemoveUpvote(c *gin.Context) {
	ic.vote(c, ic.lifecycle.RemoveUpvote, false)
}

func (ic *IssueController) vote(c *gin.Context, op func(context.Context, primitive.ObjectID, primitive.ObjectID) error, voted bool) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := op(ctx, issueID, userID); err != nil {
		respondError(c, err)
		return
	}

	issue, err := ic.issues.FindByID(ctx, issueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"votes":        len(issue.Upvotes),
		"userHasVoted": issue.HasUpvoted(userID),
		"voted":        voted,
	})
}
