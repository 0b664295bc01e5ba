package services

import (
	"context"
	"log"

	"civicgrid-be/models"
	"civicgrid-be/stores"
)

// NotificationGateway delivers best-effort notifications. Implementations
// must never block state transitions; dispatch failures are logged and
// dropped.
type NotificationGateway interface {
	NotifyNewIssue(ctx context.Context, issue *models.Issue, reporterID string)
	NotifyAssignment(ctx context.Context, issue *models.Issue, assignee *models.User)
	NotifyResolved(ctx context.Context, issue *models.Issue, resolvedBy *models.User)
}

// LogNotifier writes notifications to the process log. It stands in for an
// SMS/email provider, which stays behind this interface.
type LogNotifier struct {
	users stores.UserDirectory
}

// NewLogNotifier returns a gateway that logs every notification.
func NewLogNotifier(users stores.UserDirectory) *LogNotifier {
	return &LogNotifier{users: users}
}

var _ NotificationGateway = (*LogNotifier)(nil)

func (n *LogNotifier) NotifyNewIssue(ctx context.Context, issue *models.Issue, reporterID string) {
	admins, err := n.users.FindAdmins(ctx)
	if err != nil {
		log.Printf("notify: admin lookup failed for new issue %s: %v", issue.ID.Hex(), err)
		return
	}
	log.Printf("notify: new issue %q (%s) reported by %s, informing %d admin(s)",
		issue.Title, issue.ID.Hex(), reporterID, len(admins))
}

func (n *LogNotifier) NotifyAssignment(ctx context.Context, issue *models.Issue, assignee *models.User) {
	log.Printf("notify: issue %q (%s) assigned to %s (%s)",
		issue.Title, issue.ID.Hex(), assignee.Name, assignee.Role)
}

func (n *LogNotifier) NotifyResolved(ctx context.Context, issue *models.Issue, resolvedBy *models.User) {
	log.Printf("notify: issue %q (%s) resolved by %s, informing reporter %s",
		issue.Title, issue.ID.Hex(), resolvedBy.Name, issue.ReportedBy.Hex())
}
