package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"civicgrid-be/apperrors"
	"civicgrid-be/models"
	"civicgrid-be/stores"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeIssueStore is an in-memory IssueStore with the same versioned-write
// semantics as the Mongo implementation.
type fakeIssueStore struct {
	mu     sync.Mutex
	issues map[primitive.ObjectID]models.Issue

	// findHook runs inside FindByID, outside the lock; tests use it to force
	// interleavings.
	findHook func()
}

func newFakeIssueStore() *fakeIssueStore {
	return &fakeIssueStore{issues: make(map[primitive.ObjectID]models.Issue)}
}

var _ stores.IssueStore = (*fakeIssueStore)(nil)

func (f *fakeIssueStore) Insert(ctx context.Context, issue *models.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	issue.Version = 1
	f.issues[issue.ID] = *issue
	return nil
}

func (f *fakeIssueStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	f.mu.Lock()
	stored, ok := f.issues[id]
	f.mu.Unlock()
	if !ok {
		return nil, &apperrors.NotFoundError{Kind: "issue", ID: id.Hex()}
	}
	if f.findHook != nil {
		f.findHook()
	}
	copy := stored
	return &copy, nil
}

func (f *fakeIssueStore) Find(ctx context.Context, filter stores.IssueFilter, sort stores.IssueSort, page stores.Page) ([]models.Issue, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Issue
	for _, issue := range f.issues {
		if filter.Status != "" && issue.Status != filter.Status {
			continue
		}
		if filter.Category != "" && issue.Category != filter.Category {
			continue
		}
		if filter.AssignedTo != nil && (issue.AssignedTo == nil || *issue.AssignedTo != *filter.AssignedTo) {
			continue
		}
		out = append(out, issue)
	}
	return out, int64(len(out)), nil
}

func (f *fakeIssueStore) Update(ctx context.Context, issue *models.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.issues[issue.ID]
	if !ok {
		return &apperrors.NotFoundError{Kind: "issue", ID: issue.ID.Hex()}
	}
	if stored.Version != issue.Version {
		return apperrors.ErrConflict
	}
	issue.Version++
	issue.UpdatedAt = time.Now()
	f.issues[issue.ID] = *issue
	return nil
}

func (f *fakeIssueStore) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.issues[id]; !ok {
		return &apperrors.NotFoundError{Kind: "issue", ID: id.Hex()}
	}
	delete(f.issues, id)
	return nil
}

func (f *fakeIssueStore) FindOverdue(ctx context.Context, now time.Time) ([]models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Issue
	for _, issue := range f.issues {
		if !issue.Status.IsActive() {
			continue
		}
		if issue.EscalationDeadline == nil || issue.EscalationDeadline.After(now) {
			continue
		}
		if issue.AssignedRole == models.RoleCommissioner {
			continue
		}
		out = append(out, issue)
	}
	sortByID(out)
	return out, nil
}

func (f *fakeIssueStore) FindUnassignedReported(ctx context.Context) ([]models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Issue
	for _, issue := range f.issues {
		if issue.Status == models.StatusReported && issue.AssignedTo == nil {
			out = append(out, issue)
		}
	}
	sortByID(out)
	return out, nil
}

func sortByID(issues []models.Issue) {
	sort.Slice(issues, func(i, j int) bool {
		return issues[i].ID.Hex() < issues[j].ID.Hex()
	})
}

func (f *fakeIssueStore) AddUpvote(ctx context.Context, issueID, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[issueID]
	if !ok {
		return &apperrors.NotFoundError{Kind: "issue", ID: issueID.Hex()}
	}
	for _, u := range issue.Upvotes {
		if u == userID {
			return nil
		}
	}
	issue.Upvotes = append(issue.Upvotes, userID)
	f.issues[issueID] = issue
	return nil
}

func (f *fakeIssueStore) RemoveUpvote(ctx context.Context, issueID, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[issueID]
	if !ok {
		return &apperrors.NotFoundError{Kind: "issue", ID: issueID.Hex()}
	}
	kept := issue.Upvotes[:0]
	for _, u := range issue.Upvotes {
		if u != userID {
			kept = append(kept, u)
		}
	}
	issue.Upvotes = kept
	f.issues[issueID] = issue
	return nil
}

func (f *fakeIssueStore) get(id primitive.ObjectID) models.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issues[id]
}

// fakeUserDirectory serves a fixed user list with the production tiebreak.
type fakeUserDirectory struct {
	users []models.User

	// failFor injects a lookup error for a role, for isolation tests.
	failFor map[models.Role]error
}

var _ stores.UserDirectory = (*fakeUserDirectory)(nil)

func (f *fakeUserDirectory) FindActive(ctx context.Context, query stores.UserQuery) (*models.User, error) {
	if err, ok := f.failFor[query.Role]; ok {
		return nil, err
	}
	var candidates []models.User
	for _, u := range f.users {
		if u.Role != query.Role || !u.IsActive {
			continue
		}
		if len(query.Departments) > 0 && !hasAnyDepartment(u, query.Departments) {
			continue
		}
		candidates = append(candidates, u)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].LoginCount != candidates[j].LoginCount {
			return candidates[i].LoginCount < candidates[j].LoginCount
		}
		return lastLoginAfter(candidates[i], candidates[j])
	})
	best := candidates[0]
	return &best, nil
}

func hasAnyDepartment(u models.User, wanted []string) bool {
	for _, d := range u.Departments {
		for _, w := range wanted {
			if d == w {
				return true
			}
		}
	}
	return false
}

func lastLoginAfter(a, b models.User) bool {
	if a.LastLogin == nil {
		return false
	}
	if b.LastLogin == nil {
		return true
	}
	return a.LastLogin.After(*b.LastLogin)
}

func (f *fakeUserDirectory) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			copy := u
			return &copy, nil
		}
	}
	return nil, &apperrors.NotFoundError{Kind: "user", ID: id.Hex()}
}

func (f *fakeUserDirectory) FindAdmins(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.Role == models.RoleAdmin && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeNotifier records notification calls.
type fakeNotifier struct {
	mu          sync.Mutex
	newIssues   int
	assignments int
	resolutions int
}

var _ NotificationGateway = (*fakeNotifier)(nil)

func (f *fakeNotifier) NotifyNewIssue(ctx context.Context, issue *models.Issue, reporterID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newIssues++
}

func (f *fakeNotifier) NotifyAssignment(ctx context.Context, issue *models.Issue, assignee *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments++
}

func (f *fakeNotifier) NotifyResolved(ctx context.Context, issue *models.Issue, resolvedBy *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolutions++
}
