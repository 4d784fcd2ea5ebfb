package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a posting.
type JobStatus string

const (
	StatusDraft     JobStatus = "draft"
	StatusPublished JobStatus = "published"
	StatusClosed    JobStatus = "closed"
)

// EmploymentType is the contract form of a posting.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full-time"
	EmploymentPartTime   EmploymentType = "part-time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
)

// Job is a catalog item. The matching engine reads it and never writes it.
type Job struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	Company        string         `json:"company"`
	Description    string         `json:"description"`
	Location       string         `json:"location"`
	EmploymentType EmploymentType `json:"employment_type"`
	SalaryMin      *int64         `json:"salary_min,omitempty"`
	SalaryMax      *int64         `json:"salary_max,omitempty"`
	Remote         bool           `json:"remote"`
	Category       string         `json:"category"`
	Industry       string         `json:"industry"`
	CompanyType    string         `json:"company_type"`
	CompanySize    string         `json:"company_size"`
	Skills         []string       `json:"skills"`
	Tags           []string       `json:"tags"`
	Status         JobStatus      `json:"status"`
	PostedAt       time.Time      `json:"posted_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// EmbeddingText renders the posting as the text the embedding cache feeds to
// the provider. Field order is stable so cached vectors stay comparable.
func (j *Job) EmbeddingText() string {
	var b strings.Builder
	b.WriteString("Title: " + j.Title + "\n")
	if j.Category != "" {
		b.WriteString("Category: " + j.Category + "\n")
	}
	if j.Industry != "" {
		b.WriteString("Industry: " + j.Industry + "\n")
	}
	b.WriteString("Location: " + j.Location + "\n")
	if len(j.Skills) > 0 {
		b.WriteString("Skills: " + strings.Join(j.Skills, ", ") + "\n")
	}
	if len(j.Tags) > 0 {
		b.WriteString("Tags: " + strings.Join(j.Tags, ", ") + "\n")
	}
	b.WriteString(j.Description)
	return b.String()
}
