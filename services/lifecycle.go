package services

import (
	"context"
	"strings"
	"time"

	"civicgrid-be/apperrors"
	"civicgrid-be/config"
	"civicgrid-be/geo"
	"civicgrid-be/models"
	"civicgrid-be/stores"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeofenceRadiusMeters is the maximum distance between the reported location
// and the resolution location. The boundary is inclusive: exactly 10 m passes.
const GeofenceRadiusMeters = 10.0

// Lifecycle owns every issue state transition. All mutation of issue records
// goes through it; writes are versioned, so a concurrent loser gets
// apperrors.ErrConflict and must re-read.
type Lifecycle struct {
	issues     stores.IssueStore
	users      stores.UserDirectory
	notifier   NotificationGateway
	classifier *Classifier
	policy     config.EscalationConfig
	now        func() time.Time
}

// NewLifecycle wires the state machine. classifier may be nil (validation
// disabled).
func NewLifecycle(issues stores.IssueStore, users stores.UserDirectory, notifier NotificationGateway, classifier *Classifier, policy config.EscalationConfig) *Lifecycle {
	return &Lifecycle{
		issues:     issues,
		users:      users,
		notifier:   notifier,
		classifier: classifier,
		policy:     policy,
		now:        time.Now,
	}
}

// CreateInput is a new citizen report.
type CreateInput struct {
	Title       string
	Description string
	Category    models.IssueCategory
	Location    models.Location
	Tags        []string
	Images      []models.Attachment
	Documents   []models.Attachment
	IsAnonymous bool
	ReportedBy  primitive.ObjectID
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &apperrors.ValidationError{Field: "title", Reason: "is required"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return &apperrors.ValidationError{Field: "description", Reason: "is required"}
	}
	if !models.IsValidCategory(in.Category) {
		return &apperrors.ValidationError{Field: "category", Reason: "is not a known department"}
	}
	if strings.TrimSpace(in.Location.Name) == "" {
		return &apperrors.ValidationError{Field: "location", Reason: "name is required"}
	}
	return nil
}

// Create validates and persists a new issue in the reported state. The
// optional classifier runs first; an explicit rejection blocks creation and
// is surfaced to the caller, any other classifier outcome sets the priority.
func (l *Lifecycle) Create(ctx context.Context, in CreateInput) (*models.Issue, ClassifierResult, error) {
	if err := in.validate(); err != nil {
		return nil, ClassifierResult{}, err
	}

	now := l.now()
	issue := &models.Issue{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Tags:        in.Tags,
		Images:      in.Images,
		Documents:   in.Documents,
		IsAnonymous: in.IsAnonymous,
		IsPublic:    true,
		Location:    in.Location,
		Status:      models.StatusReported,
		Priority:    models.PriorityMedium,
		ReportedBy:  in.ReportedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	verdict := l.classifier.Classify(ctx, issue, in.ReportedBy.Hex())
	if !verdict.Accepted() {
		return nil, verdict, &apperrors.ValidationError{Field: "report", Reason: "rejected: " + verdict.Reason}
	}
	issue.Priority = verdict.Priority

	if err := l.issues.Insert(ctx, issue); err != nil {
		return nil, verdict, err
	}

	l.notifier.NotifyNewIssue(ctx, issue, in.ReportedBy.Hex())
	return issue, verdict, nil
}

// Assign places the issue with a concrete user at a role tier, moves a
// reported issue to in-progress, and arms the escalation clock. Re-assigning
// the same user refreshes assignedAt and the deadline.
func (l *Lifecycle) Assign(ctx context.Context, issue *models.Issue, assignee *models.User, assignedBy primitive.ObjectID, role models.Role) error {
	if issue.Status == models.StatusResolved {
		return &apperrors.InvalidTransitionError{From: string(models.StatusResolved), To: "assigned"}
	}
	if !role.IsEscalationTier() {
		return &apperrors.ValidationError{Field: "role", Reason: "is not an assignable tier"}
	}

	now := l.now()
	// History records role changes only; a same-role re-assignment just
	// refreshes assignedAt and the deadline.
	if issue.AssignedRole != role {
		issue.EscalationHistory = append(issue.EscalationHistory, models.EscalationEntry{
			Role:        role,
			Assignee:    &assignee.ID,
			EscalatedBy: &assignedBy,
			Reason:      "Assigned",
			At:          now,
		})
	}
	issue.AssignedTo = &assignee.ID
	issue.AssignedBy = &assignedBy
	issue.AssignedRole = role
	issue.AssignedAt = &now
	deadline := now.Add(l.policy.SLAFor(role))
	issue.EscalationDeadline = &deadline
	if issue.Status == models.StatusReported {
		issue.Status = models.StatusInProgress
	}

	if err := l.issues.Update(ctx, issue); err != nil {
		return err
	}

	l.notifier.NotifyAssignment(ctx, issue, assignee)
	return nil
}

// Escalate moves the issue to the next role tier. toRole must be the
// immediate successor of the current tier; anything else, including skipping
// a tier or escalating past commissioner, is an invalid transition. Both the
// sweep and manual admin escalation land here.
func (l *Lifecycle) Escalate(ctx context.Context, issue *models.Issue, toRole models.Role, assignee *models.User, escalatedBy *primitive.ObjectID, reason string) error {
	if issue.Status == models.StatusResolved {
		return &apperrors.InvalidTransitionError{From: string(models.StatusResolved), To: string(toRole)}
	}
	if issue.AssignedRole.Next() != toRole || toRole == "" {
		return &apperrors.InvalidTransitionError{From: string(issue.AssignedRole), To: string(toRole)}
	}

	now := l.now()
	issue.EscalationHistory = append(issue.EscalationHistory, models.EscalationEntry{
		Role:        toRole,
		Assignee:    &assignee.ID,
		EscalatedBy: escalatedBy,
		Reason:      reason,
		At:          now,
	})
	issue.AssignedRole = toRole
	issue.AssignedTo = &assignee.ID
	issue.AssignedBy = escalatedBy
	issue.AssignedAt = &now
	deadline := now.Add(l.policy.SLAFor(toRole))
	issue.EscalationDeadline = &deadline
	issue.Status = models.StatusEscalated

	if err := l.issues.Update(ctx, issue); err != nil {
		return err
	}

	l.notifier.NotifyAssignment(ctx, issue, assignee)
	return nil
}

// Resolve closes the issue. The resolver must be an admin, the current
// assignee, or serve the issue's department; a department resolver who is
// not the assignee is silently reassigned first for accountability. When a
// resolution location is supplied it must fall within the geofence radius of
// the original report.
func (l *Lifecycle) Resolve(ctx context.Context, issueID primitive.ObjectID, resolvedBy primitive.ObjectID, photo *models.ResolvedPhoto, location *models.Coordinates) (*models.Issue, error) {
	issue, err := l.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Status == models.StatusResolved {
		return nil, &apperrors.InvalidTransitionError{From: string(models.StatusResolved), To: string(models.StatusResolved)}
	}

	resolver, err := l.users.FindByID(ctx, resolvedBy)
	if err != nil {
		return nil, err
	}

	isAdmin := resolver.Role == models.RoleAdmin
	isAssignee := issue.AssignedTo != nil && *issue.AssignedTo == resolvedBy
	sameDepartment := resolver.InDepartment(issue.Category)
	if !isAdmin && !isAssignee && !sameDepartment {
		return nil, &apperrors.UnauthorizedError{Reason: "not authorized to resolve this issue"}
	}

	now := l.now()
	if !isAssignee {
		issue.AssignedTo = &resolver.ID
		issue.AssignedBy = &resolver.ID
		issue.AssignedAt = &now
	}

	if location != nil {
		distance := geo.DistanceMeters(
			issue.Location.Coordinates.Latitude, issue.Location.Coordinates.Longitude,
			location.Latitude, location.Longitude,
		)
		if distance > GeofenceRadiusMeters {
			return nil, &apperrors.GeofenceViolationError{
				DistanceMeters: distance,
				LimitMeters:    GeofenceRadiusMeters,
			}
		}
	}

	if issue.Resolved == nil {
		issue.Resolved = &models.Resolution{}
	}
	issue.Resolved.Photo = photo
	issue.Resolved.Location = location
	issue.Resolved.ResolvedBy = &resolvedBy
	issue.ResolvedAt = &now
	issue.Status = models.StatusResolved
	days := int(now.Sub(issue.CreatedAt).Hours() / 24)
	issue.ActualResolutionDays = &days

	if err := l.issues.Update(ctx, issue); err != nil {
		return nil, err
	}

	l.notifier.NotifyResolved(ctx, issue, resolver)
	return issue, nil
}

// Upvote adds the user to the issue's vote set. Voting twice is a no-op.
func (l *Lifecycle) Upvote(ctx context.Context, issueID, userID primitive.ObjectID) error {
	return l.issues.AddUpvote(ctx, issueID, userID)
}

// RemoveUpvote takes the user out of the vote set. Removing an absent vote
// is a no-op, not an error.
func (l *Lifecycle) RemoveUpvote(ctx context.Context, issueID, userID primitive.ObjectID) error {
	return l.issues.RemoveUpvote(ctx, issueID, userID)
}
