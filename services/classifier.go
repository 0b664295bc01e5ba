package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"civicgrid-be/config"
	"civicgrid-be/models"

	"github.com/google/uuid"
)

// ClassifierResult is the ML service verdict on a new report. Only an
// explicit "rejected" blocks creation; every failure mode degrades to an
// accepted result with medium priority.
type ClassifierResult struct {
	Status   string               `json:"status"`
	Priority models.IssuePriority `json:"priority"`
	Reason   string               `json:"reason,omitempty"`
}

// Accepted reports whether the issue may proceed.
func (r ClassifierResult) Accepted() bool {
	return r.Status != "rejected"
}

type classifyRequest struct {
	ReportID    string   `json:"report_id"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	UserID      string   `json:"user_id"`
	ImageURL    *string  `json:"image_url"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// Classifier calls the optional ML validation endpoint with a bounded
// timeout. A nil Classifier or empty URL disables classification.
type Classifier struct {
	cfg    config.ClassifierConfig
	client *http.Client
}

// NewClassifier builds a classifier from config. Returns nil when no URL is
// configured, which callers treat as classification disabled.
func NewClassifier(cfg config.ClassifierConfig) *Classifier {
	if cfg.URL == "" {
		return nil
	}
	return &Classifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func defaultResult() ClassifierResult {
	return ClassifierResult{Status: "accepted", Priority: models.PriorityMedium}
}

// Classify submits the report. Timeouts, transport errors, non-2xx statuses
// and unparseable bodies all degrade to the accepted default.
func (c *Classifier) Classify(ctx context.Context, issue *models.Issue, userID string) ClassifierResult {
	if c == nil {
		return defaultResult()
	}

	lat := issue.Location.Coordinates.Latitude
	lng := issue.Location.Coordinates.Longitude
	payload := classifyRequest{
		ReportID:    uuid.NewString(),
		Description: issue.Description,
		Category:    string(issue.Category),
		UserID:      userID,
		Latitude:    &lat,
		Longitude:   &lng,
	}
	if len(issue.Images) > 0 {
		payload.ImageURL = &issue.Images[0].URL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return defaultResult()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return defaultResult()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("classifier: request failed, continuing without validation: %v", err)
		return defaultResult()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("classifier: unexpected status %d, continuing without validation", resp.StatusCode)
		return defaultResult()
	}

	var result ClassifierResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("classifier: bad response body, continuing without validation: %v", err)
		return defaultResult()
	}
	if !models.IsValidPriority(result.Priority) {
		result.Priority = models.PriorityMedium
	}
	return result
}
