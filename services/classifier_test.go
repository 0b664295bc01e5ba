package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civicgrid-be/config"
	"civicgrid-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func classifierIssue() *models.Issue {
	return &models.Issue{
		Description: "pothole on the main road",
		Category:    models.RoadTraffic,
		Location:    testLocation,
	}
}

func newTestClassifier(url string) *Classifier {
	return NewClassifier(config.ClassifierConfig{URL: url, Timeout: 200 * time.Millisecond})
}

func TestClassifierDisabled(t *testing.T) {
	assert.Nil(t, NewClassifier(config.ClassifierConfig{}))

	var c *Classifier
	result := c.Classify(context.Background(), classifierIssue(), "u1")
	assert.True(t, result.Accepted())
	assert.Equal(t, models.PriorityMedium, result.Priority)
}

func TestClassifierAcceptedSetsPriority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"accepted","priority":"urgent"}`))
	}))
	defer srv.Close()

	result := newTestClassifier(srv.URL).Classify(context.Background(), classifierIssue(), "u1")
	assert.True(t, result.Accepted())
	assert.Equal(t, models.PriorityUrgent, result.Priority)
}

func TestClassifierRejectionBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"rejected","priority":"low","reason":"duplicate report"}`))
	}))
	defer srv.Close()

	result := newTestClassifier(srv.URL).Classify(context.Background(), classifierIssue(), "u1")
	assert.False(t, result.Accepted())
	assert.Equal(t, "duplicate report", result.Reason)
}

func TestClassifierDegradesOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"non-json body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}},
		{"slow response", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			result := newTestClassifier(srv.URL).Classify(context.Background(), classifierIssue(), "u1")
			assert.True(t, result.Accepted(), "failure degrades to accepted")
			assert.Equal(t, models.PriorityMedium, result.Priority)
		})
	}
}

func TestClassifierUnreachableHost(t *testing.T) {
	result := newTestClassifier("http://127.0.0.1:1/classify").Classify(context.Background(), classifierIssue(), "u1")
	assert.True(t, result.Accepted())
}

func TestCreateBlockedByClassifierRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"rejected","priority":"low","reason":"not a civic issue"}`))
	}))
	defer srv.Close()

	store := newFakeIssueStore()
	dir := &fakeUserDirectory{users: testUsers()}
	lc := NewLifecycle(store, dir, &fakeNotifier{}, newTestClassifier(srv.URL), testPolicy())

	_, verdict, err := lc.Create(context.Background(), CreateInput{
		Title:       "Spam",
		Description: "spam",
		Category:    models.RoadTraffic,
		Location:    testLocation,
		ReportedBy:  primitive.NewObjectID(),
	})
	require.Error(t, err)
	assert.False(t, verdict.Accepted())
	assert.Equal(t, "not a civic issue", verdict.Reason)
	assert.Empty(t, store.issues, "rejected report is never persisted")
}
