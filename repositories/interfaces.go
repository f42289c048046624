package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/newsroom-api/models"
)

// ErrIssueNotFound is returned when an issue does not exist
var ErrIssueNotFound = errors.New("issue not found")

// TransactionManager opens database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// IssueRepository handles issue data operations
type IssueRepository interface {
	// FindByID retrieves an issue by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.Issue, error)

	// Find lists issues matching filter, newest first
	Find(ctx context.Context, filter models.IssueFilter, limit, offset int) ([]*models.Issue, error)

	// Create inserts a new issue
	Create(ctx context.Context, issue *models.Issue) error

	// UpdateProps applies patch and returns the updated issue
	UpdateProps(ctx context.Context, id uuid.UUID, patch models.IssuePatch, actor string) (*models.Issue, error)

	// UpdateArticles replaces the article list, and the featured list when
	// featured is non-nil, returning the updated issue
	UpdateArticles(ctx context.Context, id uuid.UUID, articles []uuid.UUID, featured []uuid.UUID, actor string) (*models.Issue, error)

	// Remove deletes an issue and returns it
	Remove(ctx context.Context, id uuid.UUID) (*models.Issue, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Issues IssueRepository
}
