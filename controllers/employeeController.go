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

// EmployeeController serves the employee work queue and the geofenced
// resolution endpoint.
type EmployeeController struct {
	lifecycle *services.Lifecycle
	issues    stores.IssueStore
	users     stores.UserDirectory
}

// NewEmployeeController wires the employee endpoints.
func NewEmployeeController(lifecycle *services.Lifecycle, issues stores.IssueStore, users stores.UserDirectory) *EmployeeController {
	return &EmployeeController{lifecycle: lifecycle, issues: issues, users: users}
}

// ListAssignedIssues returns active issues assigned to the employee or
// belonging to their department, highest priority first.
func (ec *EmployeeController) ListAssignedIssues(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := ec.users.FindByID(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	assigned, _, err := ec.issues.Find(ctx,
		stores.IssueFilter{AssignedTo: &userID},
		stores.IssueSort{Field: "createdAt", Desc: true},
		stores.Page{Number: page, Size: limit})
	if err != nil {
		respondError(c, err)
		return
	}

	// Union with the employee's department queue, dropping duplicates and
	// resolved issues.
	seen := make(map[primitive.ObjectID]bool, len(assigned))
	var combined []models.Issue
	for _, issue := range assigned {
		if issue.Status == models.StatusResolved {
			continue
		}
		seen[issue.ID] = true
		combined = append(combined, issue)
	}
	for _, dept := range user.Departments {
		if dept == models.AllDepartments {
			continue
		}
		deptIssues, _, err := ec.issues.Find(ctx,
			stores.IssueFilter{Category: models.IssueCategory(dept)},
			stores.IssueSort{Field: "createdAt", Desc: true},
			stores.Page{Number: page, Size: limit})
		if err != nil {
			respondError(c, err)
			return
		}
		for _, issue := range deptIssues {
			if issue.Status == models.StatusResolved || seen[issue.ID] {
				continue
			}
			seen[issue.ID] = true
			combined = append(combined, issue)
		}
	}

	c.JSON(http.StatusOK, gin.H{"issues": combined})
}

// ResolveIssue closes an issue with proof-of-work. The resolution location,
// when supplied, must be within 10 meters of the reported location.
func (ec *EmployeeController) ResolveIssue(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Latitude  *float64 `json:"latitude,omitempty"`
		Longitude *float64 `json:"longitude,omitempty"`
		PhotoURL  string   `json:"photoUrl,omitempty"`
		PhotoID   string   `json:"photoId,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var photo *models.ResolvedPhoto
	if input.PhotoURL != "" {
		photo = &models.ResolvedPhoto{URL: input.PhotoURL, PublicID: input.PhotoID}
	}
	var location *models.Coordinates
	if input.Latitude != nil && input.Longitude != nil {
		location = &models.Coordinates{Latitude: *input.Latitude, Longitude: *input.Longitude}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, err := ec.lifecycle.Resolve(ctx, issueID, userID, photo, location)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Issue resolved", "issue": issue})
}
