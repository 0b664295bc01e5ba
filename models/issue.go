package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum — matches the civic departments issues are routed to.
type IssueCategory string

const (
	RoadTraffic     IssueCategory = "Road & Traffic"
	WaterDrainage   IssueCategory = "Water & Drainage"
	Electricity     IssueCategory = "Electricity & Lighting"
	Sanitation      IssueCategory = "Sanitation & Waste"
	Parks           IssueCategory = "Parks & Recreation"
	OtherCategory   IssueCategory = "Other"
	AllDepartments                = "All" // sentinel on users, never on issues
)

// ValidCategories lists every category an issue may carry.
var ValidCategories = []IssueCategory{
	RoadTraffic, WaterDrainage, Electricity, Sanitation, Parks, OtherCategory,
}

// IsValidCategory reports whether c names a real department.
func IsValidCategory(c IssueCategory) bool {
	for _, v := range ValidCategories {
		if v == c {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	StatusReported   IssueStatus = "reported"
	StatusInProgress IssueStatus = "in-progress"
	StatusEscalated  IssueStatus = "escalated"
	StatusResolved   IssueStatus = "resolved"
)

// IsActive reports whether s is an unresolved, assignable state. Escalated
// issues count as active; the distinction from in-progress is display only.
func (s IssueStatus) IsActive() bool {
	return s == StatusInProgress || s == StatusEscalated
}

// IssuePriority enum — set once at creation, used only for ordering.
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
	PriorityUrgent IssuePriority = "urgent"
)

// IsValidPriority reports whether p is one of the known priorities.
func IsValidPriority(p IssuePriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Location is a named point. Coordinates are immutable once the issue is
// created; they anchor the resolution geofence.
type Location struct {
	Name        string      `bson:"name" json:"name"`
	Coordinates Coordinates `bson:"coordinates" json:"coordinates"`
}

// Attachment is an uploaded image or document reference.
type Attachment struct {
	URL     string `bson:"url" json:"url"`
	Caption string `bson:"caption,omitempty" json:"caption,omitempty"`
}

// ResolvedPhoto is the proof-of-work photo recorded at resolution.
type ResolvedPhoto struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId,omitempty" json:"publicId,omitempty"`
}

// Resolution captures how an issue was closed.
type Resolution struct {
	Photo      *ResolvedPhoto      `bson:"photo,omitempty" json:"photo,omitempty"`
	Location   *Coordinates        `bson:"location,omitempty" json:"location,omitempty"`
	ResolvedBy *primitive.ObjectID `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
}

// EscalationEntry is one append-only record of a role transition.
type EscalationEntry struct {
	Role        Role                `bson:"role" json:"role"`
	Assignee    *primitive.ObjectID `bson:"assignee,omitempty" json:"assignee,omitempty"`
	EscalatedBy *primitive.ObjectID `bson:"escalatedBy,omitempty" json:"escalatedBy,omitempty"`
	Reason      string              `bson:"reason" json:"reason"`
	At          time.Time           `bson:"at" json:"at"`
}

// Issue represents a civic issue reported by a citizen and tracked through
// assignment, escalation and geofenced resolution.
type Issue struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    IssueCategory      `bson:"category" json:"category"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Images      []Attachment       `bson:"images,omitempty" json:"images,omitempty"`
	Documents   []Attachment       `bson:"documents,omitempty" json:"documents,omitempty"`
	IsAnonymous bool               `bson:"isAnonymous" json:"isAnonymous"`
	IsPublic    bool               `bson:"isPublic" json:"isPublic"`

	Location Location    `bson:"location" json:"location"`
	Status   IssueStatus `bson:"status" json:"status"`
	Priority IssuePriority `bson:"priority" json:"priority"`

	ReportedBy primitive.ObjectID `bson:"reportedBy" json:"reportedBy"`

	AssignedTo   *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	AssignedBy   *primitive.ObjectID `bson:"assignedBy,omitempty" json:"assignedBy,omitempty"`
	AssignedRole Role                `bson:"assignedRole,omitempty" json:"assignedRole,omitempty"`
	AssignedAt   *time.Time          `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`

	EscalationDeadline *time.Time        `bson:"escalationDeadline,omitempty" json:"escalationDeadline,omitempty"`
	EscalationHistory  []EscalationEntry `bson:"escalationHistory,omitempty" json:"escalationHistory,omitempty"`

	Resolved             *Resolution `bson:"resolved,omitempty" json:"resolved,omitempty"`
	ResolvedAt           *time.Time  `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	ActualResolutionDays *int        `bson:"actualResolutionTime,omitempty" json:"actualResolutionTime,omitempty"`

	Upvotes []primitive.ObjectID `bson:"upvotes,omitempty" json:"upvotes,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Version guards conditional updates; every write increments it.
	Version int64 `bson:"version" json:"-"`
}

// HasUpvoted reports whether userID is in the upvote set.
func (i *Issue) HasUpvoted(userID primitive.ObjectID) bool {
	for _, u := range i.Upvotes {
		if u == userID {
			return true
		}
	}
	return false
}
