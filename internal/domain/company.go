package domain

import (
	"time"

	"github.com/google/uuid"
)

// DetectionStatus tracks a company's form-detection lifecycle.
type DetectionStatus string

const (
	DetectionStatusPending    DetectionStatus = "pending"
	DetectionStatusInProgress DetectionStatus = "in_progress"
	DetectionStatusCompleted  DetectionStatus = "completed"
	DetectionStatusError      DetectionStatus = "error"
)

func (s DetectionStatus) IsValid() bool {
	switch s {
	case DetectionStatusPending, DetectionStatusInProgress,
		DetectionStatusCompleted, DetectionStatusError:
		return true
	}
	return false
}

// Company is a detection target: a corporate site we look for inquiry forms on.
type Company struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	Name                 string          `json:"name" db:"name"`
	URL                  string          `json:"url" db:"url"`
	DetectionStatus      DetectionStatus `json:"detection_status" db:"detection_status"`
	DetectionError       string          `json:"detection_error,omitempty" db:"detection_error"`
	DetectedFormsCount   int             `json:"detected_forms_count" db:"detected_forms_count"`
	DetectionCompletedAt *time.Time      `json:"detection_completed_at,omitempty" db:"detection_completed_at"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// NewCompany creates a company pending detection.
func NewCompany(name, url string) *Company {
	now := time.Now().UTC()
	return &Company{
		ID:              uuid.New(),
		Name:            name,
		URL:             url,
		DetectionStatus: DetectionStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// StartDetection marks detection in progress and clears any previous error.
func (c *Company) StartDetection() {
	c.DetectionStatus = DetectionStatusInProgress
	c.DetectionError = ""
	c.UpdatedAt = time.Now().UTC()
}

// CompleteDetection records a successful detection pass.
func (c *Company) CompleteDetection(formsFound int) {
	now := time.Now().UTC()
	c.DetectionStatus = DetectionStatusCompleted
	c.DetectionError = ""
	c.DetectedFormsCount = formsFound
	c.DetectionCompletedAt = &now
	c.UpdatedAt = now
}

// FailDetection records a failed detection pass.
func (c *Company) FailDetection(reason string) {
	c.DetectionStatus = DetectionStatusError
	c.DetectionError = reason
	c.UpdatedAt = time.Now().UTC()
}
