package services

import (
	"context"
	"testing"
	"time"

	"civicgrid-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func supervisor(name string, departments []string, loginCount int64, lastLogin time.Time) models.User {
	return models.User{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Role:        models.RoleSupervisor,
		Departments: departments,
		IsActive:    true,
		LoginCount:  loginCount,
		LastLogin:   &lastLogin,
	}
}

func TestSelectAssigneePrefersMatchingDepartment(t *testing.T) {
	now := time.Now()
	dir := &fakeUserDirectory{users: []models.User{
		supervisor("dept-match", []string{"Water & Drainage"}, 5, now),
		supervisor("all-depts", []string{models.AllDepartments}, 0, now),
		supervisor("other-dept", []string{"Road & Traffic"}, 0, now),
	}}

	// "All" competes inside the first tier, so the tiebreak decides between
	// dept-match and all-depts; all-depts has the lower login count.
	user, err := SelectAssignee(context.Background(), dir, models.RoleSupervisor, models.WaterDrainage)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "all-depts", user.Name)
}

func TestSelectAssigneeTiebreakLoginCount(t *testing.T) {
	now := time.Now()
	dir := &fakeUserDirectory{users: []models.User{
		supervisor("busy", []string{"Water & Drainage"}, 10, now),
		supervisor("idle", []string{"Water & Drainage"}, 2, now.Add(-time.Hour)),
	}}

	user, err := SelectAssignee(context.Background(), dir, models.RoleSupervisor, models.WaterDrainage)
	require.NoError(t, err)
	assert.Equal(t, "idle", user.Name, "lowest login count wins")
}

func TestSelectAssigneeTiebreakLastLogin(t *testing.T) {
	now := time.Now()
	dir := &fakeUserDirectory{users: []models.User{
		supervisor("stale", []string{"Water & Drainage"}, 3, now.Add(-48*time.Hour)),
		supervisor("fresh", []string{"Water & Drainage"}, 3, now),
	}}

	user, err := SelectAssignee(context.Background(), dir, models.RoleSupervisor, models.WaterDrainage)
	require.NoError(t, err)
	assert.Equal(t, "fresh", user.Name, "most recent login breaks the tie")
}

func TestSelectAssigneeFallsBackToAnyRoleHolder(t *testing.T) {
	now := time.Now()
	dir := &fakeUserDirectory{users: []models.User{
		supervisor("wrong-dept", []string{"Road & Traffic"}, 3, now),
	}}

	user, err := SelectAssignee(context.Background(), dir, models.RoleSupervisor, models.WaterDrainage)
	require.NoError(t, err)
	require.NotNil(t, user, "last-resort tier matches any active role holder")
	assert.Equal(t, "wrong-dept", user.Name)
}

func TestSelectAssigneeIgnoresInactiveUsers(t *testing.T) {
	now := time.Now()
	inactive := supervisor("inactive", []string{"Water & Drainage"}, 0, now)
	inactive.IsActive = false
	dir := &fakeUserDirectory{users: []models.User{inactive}}

	user, err := SelectAssignee(context.Background(), dir, models.RoleSupervisor, models.WaterDrainage)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSelectAssigneeNoUsersAtAll(t *testing.T) {
	dir := &fakeUserDirectory{}

	user, err := SelectAssignee(context.Background(), dir, models.RoleSupervisor, models.WaterDrainage)
	require.NoError(t, err)
	assert.Nil(t, user)
}
