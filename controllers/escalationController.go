package controllers

import (
	"context"
	"net/http"
	"time"

	"civicgrid-be/models"
	"civicgrid-be/services"
	"civicgrid-be/stores"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EscalationController exposes the admin assignment/escalation surface and
// the sweep controls.
type EscalationController struct {
	scheduler *services.Scheduler
	lifecycle *services.Lifecycle
	issues    stores.IssueStore
	users     stores.UserDirectory
}

// NewEscalationController wires the admin endpoints.
func NewEscalationController(scheduler *services.Scheduler, lifecycle *services.Lifecycle, issues stores.IssueStore, users stores.UserDirectory) *EscalationController {
	return &EscalationController{scheduler: scheduler, lifecycle: lifecycle, issues: issues, users: users}
}

// AssignIssue places an issue with a specific employee at a role tier.
func (esc *EscalationController) AssignIssue(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		AssigneeID string `json:"assigneeId" binding:"required"`
		Role       string `json:"role" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assigneeID, err := primitive.ObjectIDFromHex(input.AssigneeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, err := esc.issues.FindByID(ctx, issueID)
	if err != nil {
		respondError(c, err)
		return
	}
	assignee, err := esc.users.FindByID(ctx, assigneeID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := esc.lifecycle.Assign(ctx, issue, assignee, adminID, models.Role(input.Role)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

// EscalateIssue is the manual admin escalation: the deadline check is
// bypassed but the hierarchy rules still hold.
func (esc *EscalationController) EscalateIssue(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		ToRole string `json:"toRole" binding:"required"`
		Reason string `json:"reason,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Reason == "" {
		input.Reason = "Manually escalated by admin"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	issue, assignee, err := esc.scheduler.ManualEscalate(ctx, issueID, models.Role(input.ToRole), adminID, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issue": issue,
		"assignedTo": gin.H{
			"id":   assignee.ID,
			"name": assignee.Name,
			"role": assignee.Role,
		},
	})
}

// RunSweep triggers an escalation sweep out of schedule. A sweep already in
// flight is reported, not queued behind.
func (esc *EscalationController) RunSweep(c *gin.Context) {
	summary, ran := esc.scheduler.RunSweep(c.Request.Context())
	if !ran {
		c.JSON(http.StatusConflict, gin.H{"error": "A sweep is already running"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SweepStatus reports the last sweep summary and whether one is running.
func (esc *EscalationController) SweepStatus(c *gin.Context) {
	last, running := esc.scheduler.Status()
	c.JSON(http.StatusOK, gin.H{
		"running":   running,
		"lastSweep": last,
	})
}

// GetTimeline returns the escalation history for an issue.
func (esc *EscalationController) GetTimeline(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	timeline, err := esc.scheduler.GetTimeline(ctx, issueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, timeline)
}
