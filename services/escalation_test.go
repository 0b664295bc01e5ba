package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"civicgrid-be/apperrors"
	"civicgrid-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestScheduler(dir *fakeUserDirectory) (*Scheduler, *fakeIssueStore, *Lifecycle) {
	store := newFakeIssueStore()
	notifier := &fakeNotifier{}
	lc := NewLifecycle(store, dir, notifier, nil, testPolicy())
	sched := NewScheduler(store, dir, lc, testPolicy())
	return sched, store, lc
}

func insertOverdue(t *testing.T, store *fakeIssueStore, role models.Role, category models.IssueCategory) *models.Issue {
	t.Helper()
	assignee := primitive.NewObjectID()
	assignedAt := time.Now().Add(-72 * time.Hour)
	deadline := time.Now().Add(-time.Hour)
	issue := &models.Issue{
		Title:       "Overdue issue",
		Description: "d",
		Category:    category,
		Location:    testLocation,
		Status:      models.StatusInProgress,
		Priority:    models.PriorityMedium,
		ReportedBy:  primitive.NewObjectID(),
		AssignedTo:  &assignee,
		AssignedRole: role,
		AssignedAt:  &assignedAt,
		EscalationDeadline: &deadline,
		EscalationHistory: []models.EscalationEntry{
			{Role: role, Assignee: &assignee, Reason: "Assigned", At: assignedAt},
		},
		CreatedAt: assignedAt,
		UpdatedAt: assignedAt,
	}
	require.NoError(t, store.Insert(context.Background(), issue))
	return issue
}

func TestSweepBootstrapAssignsFieldStaff(t *testing.T) {
	// Scenario: a fresh report with no assignment gets picked up by the sweep
	// and handed to field-staff in its department.
	dir := &fakeUserDirectory{users: testUsers()}
	sched, store, lc := newTestScheduler(dir)

	issue, _, err := lc.Create(context.Background(), CreateInput{
		Title:       "Burst water main",
		Description: "Water flooding the street",
		Category:    models.WaterDrainage,
		Location:    testLocation,
		ReportedBy:  primitive.NewObjectID(),
	})
	require.NoError(t, err)

	summary, ran := sched.RunSweep(context.Background())
	require.True(t, ran)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Escalated)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, OutcomeAssigned, summary.Results[0].Outcome)

	stored := store.get(issue.ID)
	assert.Equal(t, models.StatusInProgress, stored.Status)
	assert.Equal(t, models.RoleFieldStaff, stored.AssignedRole)
	assert.Equal(t, userByName(dir.users, "Asha").ID, *stored.AssignedTo)
	assert.Len(t, stored.EscalationHistory, 1)
}

func TestSweepEscalatesOverdueToNextTier(t *testing.T) {
	// Scenario: field-staff missed the deadline, the sweep moves the issue to
	// a supervisor.
	dir := &fakeUserDirectory{users: testUsers()}
	sched, store, _ := newTestScheduler(dir)
	issue := insertOverdue(t, store, models.RoleFieldStaff, models.WaterDrainage)

	summary, ran := sched.RunSweep(context.Background())
	require.True(t, ran)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Escalated)

	stored := store.get(issue.ID)
	assert.Equal(t, models.RoleSupervisor, stored.AssignedRole)
	assert.Equal(t, models.StatusEscalated, stored.Status)
	assert.Equal(t, userByName(dir.users, "Binod").ID, *stored.AssignedTo)
	require.Len(t, stored.EscalationHistory, 2)
	assert.Equal(t, "Auto-escalated: Time limit exceeded", stored.EscalationHistory[1].Reason)
	require.NotNil(t, stored.EscalationDeadline)
	assert.True(t, stored.EscalationDeadline.After(time.Now()), "deadline reset")
}

func TestSweepNeverSelectsCommissionerIssues(t *testing.T) {
	dir := &fakeUserDirectory{users: testUsers()}
	sched, store, _ := newTestScheduler(dir)
	issue := insertOverdue(t, store, models.RoleCommissioner, models.WaterDrainage)

	summary, ran := sched.RunSweep(context.Background())
	require.True(t, ran)
	assert.Equal(t, 0, summary.Checked)

	stored := store.get(issue.ID)
	assert.Equal(t, models.RoleCommissioner, stored.AssignedRole)
	assert.Len(t, stored.EscalationHistory, 1)
}

func TestSweepSkipsResolvedIssues(t *testing.T) {
	dir := &fakeUserDirectory{users: testUsers()}
	sched, store, _ := newTestScheduler(dir)
	issue := insertOverdue(t, store, models.RoleFieldStaff, models.WaterDrainage)

	// Resolve out-of-band; the sweep must not touch it.
	stored := store.get(issue.ID)
	stored.Status = models.StatusResolved
	require.NoError(t, store.Update(context.Background(), &stored))

	summary, ran := sched.RunSweep(context.Background())
	require.True(t, ran)
	assert.Equal(t, 0, summary.Checked)
}

func TestSweepNoTargetUserLeavesIssueUntouched(t *testing.T) {
	// Only field-staff exist; escalation to supervisor has no target. The
	// issue keeps its role and deadline so the next sweep retries.
	var users []models.User
	for _, u := range testUsers() {
		if u.Role == models.RoleFieldStaff {
			users = append(users, u)
		}
	}
	dir := &fakeUserDirectory{users: users}
	sched, store, _ := newTestScheduler(dir)
	issue := insertOverdue(t, store, models.RoleFieldStaff, models.WaterDrainage)
	originalDeadline := *issue.EscalationDeadline

	summary, ran := sched.RunSweep(context.Background())
	require.True(t, ran)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, OutcomeFailed, summary.Results[0].Outcome)
	assert.Equal(t, "no target user", summary.Results[0].Error)

	stored := store.get(issue.ID)
	assert.Equal(t, models.RoleFieldStaff, stored.AssignedRole)
	assert.Equal(t, originalDeadline.Unix(), stored.EscalationDeadline.Unix())
	assert.Len(t, stored.EscalationHistory, 1)
}

func TestSweepIsolatesPerIssueFailures(t *testing.T) {
	// One target lookup blows up; the other issue still escalates.
	dir := &fakeUserDirectory{
		users:   testUsers(),
		failFor: map[models.Role]error{models.RoleCommissioner: errors.New("directory unavailable")},
	}
	sched, store, _ := newTestScheduler(dir)
	healthy := insertOverdue(t, store, models.RoleFieldStaff, models.WaterDrainage)
	poisoned := insertOverdue(t, store, models.RoleSupervisor, models.WaterDrainage)

	summary, ran := sched.RunSweep(context.Background())
	require.True(t, ran)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.Escalated)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, models.RoleSupervisor, store.get(healthy.ID).AssignedRole)
	assert.Equal(t, models.RoleSupervisor, store.get(poisoned.ID).AssignedRole, "failed issue untouched")
}

func TestSweepSkipIfBusy(t *testing.T) {
	dir := &fakeUserDirectory{users: testUsers()}
	sched, _, _ := newTestScheduler(dir)

	sched.sweepMu.Lock()
	defer sched.sweepMu.Unlock()

	summary, ran := sched.RunSweep(context.Background())
	assert.False(t, ran)
	assert.Nil(t, summary)
}

func TestSweepStatusReportsLastSummary(t *testing.T) {
	dir := &fakeUserDirectory{users: testUsers()}
	sched, store, _ := newTestScheduler(dir)
	insertOverdue(t, store, models.RoleFieldStaff, models.WaterDrainage)

	last, running := sched.Status()
	assert.Nil(t, last)
	assert.False(t, running)

	_, ran := sched.RunSweep(context.Background())
	require.True(t, ran)

	last, running = sched.Status()
	require.NotNil(t, last)
	assert.False(t, running)
	assert.Equal(t, 1, last.Checked)
}

func TestManualEscalateBypassesDeadline(t *testing.T) {
	dir := &fakeUserDirectory{users: testUsers()}
	sched, store, _ := newTestScheduler(dir)

	// Deadline is in the future; only the manual path may escalate now.
	issue := insertOverdue(t, store, models.RoleFieldStaff, models.WaterDrainage)
	stored := store.get(issue.ID)
	future := time.Now().Add(24 * time.Hour)
	stored.EscalationDeadline = &future
	require.NoError(t, store.Update(context.Background(), &stored))

	admin := userByName(dir.users, "Deepak")
	escalated, assignee, err := sched.ManualEscalate(context.Background(), issue.ID,
		models.RoleSupervisor, admin.ID, "citizen complaint")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupervisor, escalated.AssignedRole)
	assert.Equal(t, "Binod", assignee.Name)
	assert.Equal(t, "citizen complaint", escalated.EscalationHistory[len(escalated.EscalationHistory)-1].Reason)
	assert.Equal(t, admin.ID, *escalated.AssignedBy)
}

func TestManualEscalateRejectsTierSkip(t *testing.T) {
	dir := &fakeUserDirectory{users: testUsers()}
	sched, store, _ := newTestScheduler(dir)
	issue := insertOverdue(t, store, models.RoleFieldStaff, models.WaterDrainage)
	admin := userByName(dir.users, "Deepak")

	_, _, err := sched.ManualEscalate(context.Background(), issue.ID,
		models.RoleCommissioner, admin.ID, "impatient")
	var transition *apperrors.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestManualEscalateMissingIssue(t *testing.T) {
	dir := &fakeUserDirectory{users: testUsers()}
	sched, _, _ := newTestScheduler(dir)

	_, _, err := sched.ManualEscalate(context.Background(), primitive.NewObjectID(),
		models.RoleSupervisor, primitive.NewObjectID(), "gone")
	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetTimeline(t *testing.T) {
	dir := &fakeUserDirectory{users: testUsers()}
	sched, store, _ := newTestScheduler(dir)
	issue := insertOverdue(t, store, models.RoleFieldStaff, models.WaterDrainage)

	timeline, err := sched.GetTimeline(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleFieldStaff, timeline.CurrentRole)
	assert.Len(t, timeline.History, 1)
	assert.Equal(t, models.StatusInProgress, timeline.Status)
}
