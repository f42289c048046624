package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/newsroom-api/models"
	"github.com/upb/newsroom-api/repositories"
	"go.uber.org/zap"
)

const issueColumns = `id, name, description, start_date, end_date, articles, featured, is_published, mid, created_by, updated_by, created_at, updated_at`

// IssueRepository implements the repositories.IssueRepository interface
type IssueRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewIssueRepository creates a new issue repository
func NewIssueRepository(db *DB, logger *zap.Logger) repositories.IssueRepository {
	return &IssueRepository{
		db:     db,
		logger: logger,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row rowScanner) (*models.Issue, error) {
	issue := &models.Issue{}
	err := row.Scan(
		&issue.ID,
		&issue.Name,
		&issue.Description,
		&issue.StartDate,
		&issue.EndDate,
		pq.Array(&issue.Articles),
		pq.Array(&issue.Featured),
		&issue.IsPublished,
		&issue.MID,
		&issue.CreatedBy,
		&issue.UpdatedBy,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// FindByID retrieves an issue by ID
func (r *IssueRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	issue, err := scanIssue(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrIssueNotFound, id)
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	return issue, nil
}

// Find lists issues matching filter, newest first
func (r *IssueRepository) Find(ctx context.Context, filter models.IssueFilter, limit, offset int) ([]*models.Issue, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.IDs != nil {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filter.OnlyPublished {
		conditions = append(conditions, "is_published = true")
	}

	query := `SELECT ` + issueColumns + ` FROM issues`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY start_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	issues := []*models.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}

	return issues, nil
}

// Create inserts a new issue
func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) error {
	query := `
		INSERT INTO issues (` + issueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		issue.ID,
		issue.Name,
		issue.Description,
		issue.StartDate,
		issue.EndDate,
		pq.Array(issue.Articles),
		pq.Array(issue.Featured),
		issue.IsPublished,
		issue.MID,
		issue.CreatedBy,
		issue.UpdatedBy,
		issue.CreatedAt,
		issue.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}

	r.logger.Debug("issue created", zap.String("id", issue.ID.String()))
	return nil
}

// UpdateProps applies patch and returns the updated issue
func (r *IssueRepository) UpdateProps(ctx context.Context, id uuid.UUID, patch models.IssuePatch, actor string) (*models.Issue, error) {
	query := `
		UPDATE issues SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			start_date = COALESCE($4, start_date),
			end_date = COALESCE($5, end_date),
			updated_by = $6,
			updated_at = $7
		WHERE id = $1
		RETURNING ` + issueColumns

	executor := GetExecutor(ctx, r.db)
	issue, err := scanIssue(executor.QueryRowContext(ctx, query,
		id,
		patch.Name,
		patch.Description,
		patch.StartDate,
		patch.EndDate,
		actor,
		time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrIssueNotFound, id)
		}
		return nil, fmt.Errorf("failed to update issue: %w", err)
	}

	r.logger.Debug("issue props updated", zap.String("id", id.String()))
	return issue, nil
}

// UpdateArticles replaces the article list, and the featured list when featured is non-nil
func (r *IssueRepository) UpdateArticles(ctx context.Context, id uuid.UUID, articles []uuid.UUID, featured []uuid.UUID, actor string) (*models.Issue, error) {
	query := `
		UPDATE issues SET
			articles = $2,
			featured = COALESCE($3, featured),
			updated_by = $4,
			updated_at = $5
		WHERE id = $1
		RETURNING ` + issueColumns

	var featuredArg interface{}
	if featured != nil {
		featuredArg = pq.Array(featured)
	}

	executor := GetExecutor(ctx, r.db)
	issue, err := scanIssue(executor.QueryRowContext(ctx, query,
		id,
		pq.Array(articles),
		featuredArg,
		actor,
		time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrIssueNotFound, id)
		}
		return nil, fmt.Errorf("failed to update issue articles: %w", err)
	}

	r.logger.Debug("issue articles updated",
		zap.String("id", id.String()),
		zap.Int("articles", len(articles)))
	return issue, nil
}

// Remove deletes an issue and returns it
func (r *IssueRepository) Remove(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	query := `DELETE FROM issues WHERE id = $1 RETURNING ` + issueColumns

	executor := GetExecutor(ctx, r.db)
	issue, err := scanIssue(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrIssueNotFound, id)
		}
		return nil, fmt.Errorf("failed to delete issue: %w", err)
	}

	r.logger.Debug("issue removed", zap.String("id", id.String()))
	return issue, nil
}
