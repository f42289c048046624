package models

import (
	"time"

	"github.com/google/uuid"
)

// Issue groups a set of articles published together for a date range
type Issue struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description string      `json:"description" db:"description"`
	StartDate   time.Time   `json:"startDate" db:"start_date"`
	EndDate     time.Time   `json:"endDate" db:"end_date"`
	Articles    []uuid.UUID `json:"articles" db:"articles"`
	Featured    []uuid.UUID `json:"featured" db:"featured"`
	IsPublished bool        `json:"isPublished" db:"is_published"`
	MID         string      `json:"mid" db:"mid"`
	CreatedBy   string      `json:"createdBy" db:"created_by"`
	UpdatedBy   string      `json:"updatedBy" db:"updated_by"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

// TableName returns the table name for the Issue model
func (Issue) TableName() string {
	return "issues"
}

// NewIssue creates a new unpublished Issue
func NewIssue(name, description string, startDate, endDate time.Time, articles, featured []uuid.UUID, mid, createdBy string) *Issue {
	now := time.Now().UTC()
	if articles == nil {
		articles = []uuid.UUID{}
	}
	if featured == nil {
		featured = []uuid.UUID{}
	}
	return &Issue{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		StartDate:   startDate,
		EndDate:     endDate,
		Articles:    articles,
		Featured:    featured,
		MID:         mid,
		CreatedBy:   createdBy,
		UpdatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsFeatured checks if an article is featured on the issue
func (i *Issue) IsFeatured(articleID uuid.UUID) bool {
	for _, id := range i.Featured {
		if id == articleID {
			return true
		}
	}
	return false
}

// IssueFilter selects issues for listing
type IssueFilter struct {
	IDs           []uuid.UUID
	OnlyPublished bool
}

// IssuePatch holds optional issue property updates. Nil fields are left unchanged.
type IssuePatch struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// IsEmpty reports whether the patch changes nothing
func (p IssuePatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.StartDate == nil && p.EndDate == nil
}
