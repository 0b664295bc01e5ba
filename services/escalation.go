package services

import (
	"context"
	"log"
	"sync"
	"time"

	"civicgrid-be/apperrors"
	"civicgrid-be/config"
	"civicgrid-be/models"
	"civicgrid-be/stores"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sweep outcome kinds for per-issue result rows.
const (
	OutcomeEscalated = "escalated"
	OutcomeAssigned  = "assigned"
	OutcomeFailed    = "failed"
)

// SweepResult is the outcome for one issue in a sweep.
type SweepResult struct {
	IssueID  primitive.ObjectID `json:"issueId"`
	Title    string             `json:"title"`
	FromRole models.Role        `json:"fromRole,omitempty"`
	ToRole   models.Role        `json:"toRole,omitempty"`
	Outcome  string             `json:"outcome"`
	Error    string             `json:"error,omitempty"`
}

// SweepSummary reports one sweep pass. It exists for observability; nothing
// branches on it.
type SweepSummary struct {
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Checked    int           `json:"checked"`
	Escalated  int           `json:"escalated"`
	Failed     int           `json:"failed"`
	Results    []SweepResult `json:"results"`
}

// Scheduler drives time-based escalation. One sweep runs at a time; a
// trigger while a sweep is in flight is skipped, not queued.
type Scheduler struct {
	issues    stores.IssueStore
	users     stores.UserDirectory
	lifecycle *Lifecycle
	cfg       config.EscalationConfig
	now       func() time.Time

	sweepMu sync.Mutex // held for the duration of a sweep

	mu      sync.Mutex
	last    *SweepSummary
	running bool
}

// NewScheduler wires the sweep against the lifecycle.
func NewScheduler(issues stores.IssueStore, users stores.UserDirectory, lifecycle *Lifecycle, cfg config.EscalationConfig) *Scheduler {
	return &Scheduler{
		issues:    issues,
		users:     users,
		lifecycle: lifecycle,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start runs the sweep on the configured interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if summary, ran := s.RunSweep(ctx); ran {
					log.Printf("escalation sweep: checked=%d escalated=%d failed=%d",
						summary.Checked, summary.Escalated, summary.Failed)
				}
			}
		}
	}()
}

// Status returns the last sweep summary and whether a sweep is running now.
func (s *Scheduler) Status() (*SweepSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.running
}

// RunSweep performs one pass: bootstrap-assign never-assigned reported
// issues, then escalate every overdue active issue. Returns ran=false when
// another sweep holds the lock. Each issue is handled independently; one
// failure never aborts the rest.
func (s *Scheduler) RunSweep(ctx context.Context) (*SweepSummary, bool) {
	if !s.sweepMu.TryLock() {
		return nil, false
	}
	defer s.sweepMu.Unlock()

	s.setRunning(true)
	defer s.setRunning(false)

	summary := &SweepSummary{StartedAt: s.now()}

	unassigned, err := s.issues.FindUnassignedReported(ctx)
	if err != nil {
		log.Printf("escalation sweep: unassigned query failed: %v", err)
	}
	for i := range unassigned {
		summary.record(s.bootstrapAssign(ctx, &unassigned[i]))
	}

	overdue, err := s.issues.FindOverdue(ctx, s.now())
	if err != nil {
		log.Printf("escalation sweep: overdue query failed: %v", err)
	}
	for i := range overdue {
		summary.record(s.escalateOverdue(ctx, &overdue[i]))
	}

	summary.FinishedAt = s.now()

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()
	return summary, true
}

func (s *Scheduler) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

func (m *SweepSummary) record(r SweepResult) {
	m.Checked++
	if r.Outcome == OutcomeFailed {
		m.Failed++
	} else {
		m.Escalated++
	}
	m.Results = append(m.Results, r)
}

// bootstrapAssign is the initial assignment for a reported issue that never
// got an assignee: straight to field-staff, not an escalation.
func (s *Scheduler) bootstrapAssign(ctx context.Context, issue *models.Issue) SweepResult {
	result := SweepResult{IssueID: issue.ID, Title: issue.Title, ToRole: models.RoleFieldStaff}

	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	assignee, err := SelectAssignee(attemptCtx, s.users, models.RoleFieldStaff, issue.Category)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}
	if assignee == nil {
		result.Outcome = OutcomeFailed
		result.Error = "no target user"
		return result
	}

	if err := s.lifecycle.Assign(attemptCtx, issue, assignee, assignee.ID, models.RoleFieldStaff); err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}
	result.Outcome = OutcomeAssigned
	return result
}

func (s *Scheduler) escalateOverdue(ctx context.Context, issue *models.Issue) SweepResult {
	result := SweepResult{IssueID: issue.ID, Title: issue.Title, FromRole: issue.AssignedRole}

	toRole := issue.AssignedRole.Next()
	if toRole == "" {
		// The overdue query excludes the terminal tier; getting here means
		// the record changed underneath us.
		result.Outcome = OutcomeFailed
		result.Error = (&apperrors.InvalidTransitionError{From: string(issue.AssignedRole), To: ""}).Error()
		return result
	}
	result.ToRole = toRole

	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	assignee, err := SelectAssignee(attemptCtx, s.users, toRole, issue.Category)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}
	if assignee == nil {
		// Deadline and role stay untouched so the next sweep retries.
		result.Outcome = OutcomeFailed
		result.Error = "no target user"
		return result
	}

	if err := s.lifecycle.Escalate(attemptCtx, issue, toRole, assignee, nil, "Auto-escalated: Time limit exceeded"); err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}
	result.Outcome = OutcomeEscalated
	return result
}

// ManualEscalate is the admin override: same transition as the sweep, but
// the caller supplies the target role and reason and the deadline check is
// bypassed.
func (s *Scheduler) ManualEscalate(ctx context.Context, issueID primitive.ObjectID, toRole models.Role, escalatedBy primitive.ObjectID, reason string) (*models.Issue, *models.User, error) {
	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, nil, err
	}

	assignee, err := SelectAssignee(ctx, s.users, toRole, issue.Category)
	if err != nil {
		return nil, nil, err
	}
	if assignee == nil {
		return nil, nil, &apperrors.NotFoundError{Kind: string(toRole), ID: "for category " + string(issue.Category)}
	}

	if err := s.lifecycle.Escalate(ctx, issue, toRole, assignee, &escalatedBy, reason); err != nil {
		return nil, nil, err
	}
	return issue, assignee, nil
}

// Timeline is the escalation history view for one issue.
type Timeline struct {
	CurrentRole     models.Role              `json:"currentRole,omitempty"`
	CurrentDeadline *time.Time               `json:"currentDeadline,omitempty"`
	History         []models.EscalationEntry `json:"history"`
	Priority        models.IssuePriority     `json:"priority"`
	Status          models.IssueStatus       `json:"status"`
}

// GetTimeline returns the escalation timeline for an issue.
func (s *Scheduler) GetTimeline(ctx context.Context, issueID primitive.ObjectID) (*Timeline, error) {
	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return &Timeline{
		CurrentRole:     issue.AssignedRole,
		CurrentDeadline: issue.EscalationDeadline,
		History:         issue.EscalationHistory,
		Priority:        issue.Priority,
		Status:          issue.Status,
	}, nil
}
