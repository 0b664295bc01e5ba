package services

import (
	"context"

	"civicgrid-be/models"
	"civicgrid-be/stores"
)

// targetQueries is the assignee-resolution fallback: an ordered list of
// directory queries tried in sequence, first match wins. The directory
// applies the shared tiebreak (loginCount asc, lastLogin desc) to each.
func targetQueries(role models.Role, category models.IssueCategory) []stores.UserQuery {
	return []stores.UserQuery{
		// Staff serving this department, or flagged for all departments.
		{Role: role, Departments: []string{string(category), models.AllDepartments}},
		// Broader net: anyone explicitly covering all departments.
		{Role: role, Departments: []string{models.AllDepartments}},
		// Last resort: any active user holding the role.
		{Role: role},
	}
}

// SelectAssignee walks the fallback table and returns the first active user
// it finds, or nil when the role has no eligible user at all.
func SelectAssignee(ctx context.Context, users stores.UserDirectory, role models.Role, category models.IssueCategory) (*models.User, error) {
	for _, query := range targetQueries(role, category) {
		user, err := users.FindActive(ctx, query)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}
	return nil, nil
}
