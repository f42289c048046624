package issue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/newsroom-api/authctx"
	"github.com/upb/newsroom-api/models"
	"github.com/upb/newsroom-api/permission"
	"github.com/upb/newsroom-api/repositories"
	"github.com/upb/newsroom-api/services"
	"github.com/upb/newsroom-api/session"
	"github.com/upb/newsroom-api/utils"
	"go.uber.org/zap"
)

// Pagination defaults
const (
	DefaultLimit  = 10
	DefaultOffset = 0
	MaxLimit      = 100
)

// Reasons returned to callers
const (
	ReasonIssueNotFound   = "The requested issue is not found."
	ReasonIssuesNotFound  = "One or more of the requested issues were not found."
	ReasonCreateForbidden = "The user does not have the required permission to create a new issue."
	ReasonUpdateForbidden = "The user does not have the required permission to update this issue."
	ReasonDeleteForbidden = "The user does not have the required permission to delete this issue."
)

// Caller identifies who is invoking an operation
type Caller struct {
	Auth    *authctx.AuthorizationContext
	Session *session.Session
}

// CreateInput holds the fields of a new issue
type CreateInput struct {
	Name        string      `validate:"required,max=255"`
	Description string      `validate:"max=10000"`
	StartDate   time.Time   `validate:"required"`
	EndDate     time.Time   `validate:"required,gtefield=StartDate"`
	Articles    []uuid.UUID `validate:"dive,required"`
	Featured    []uuid.UUID `validate:"dive,required"`
}

// UpdatePropsInput holds optional property changes. Nil fields are unchanged.
type UpdatePropsInput struct {
	Name        *string    `validate:"omitnil,min=1,max=255"`
	Description *string    `validate:"omitnil,max=10000"`
	StartDate   *time.Time
	EndDate     *time.Time
}

// Service implements the permission gated issue operations
type Service struct {
	repo   repositories.IssueRepository
	txMgr  repositories.TransactionManager
	perms  permission.Predicate
	logger *zap.Logger
}

// NewService creates a new issue Service
func NewService(repo repositories.IssueRepository, txMgr repositories.TransactionManager, perms permission.Predicate, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		txMgr:  txMgr,
		perms:  perms,
		logger: logger,
	}
}

func (c Caller) auth() *authctx.AuthorizationContext {
	if c.Auth == nil {
		return authctx.Anonymous()
	}
	return c.Auth
}

func (s *Service) can(c Caller, perm string) bool {
	ac := c.auth()
	return s.perms.Exists(c.Session, ac.AuthToken, ac.DecodedToken, perm)
}

// GetIssueByID returns an issue. Unpublished issues are reported as not
// found unless the caller may read unpublished issues.
func (s *Service) GetIssueByID(ctx context.Context, c Caller, id uuid.UUID) (*models.Issue, error) {
	issue, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if !issue.IsPublished && !s.can(c, permission.IssueReadUnpublished) {
		return nil, services.NotFound(ReasonIssueNotFound)
	}

	return issue, nil
}

// GetLatestIssues lists issues newest first. Callers without permission to
// list unpublished issues only ever see published ones.
func (s *Service) GetLatestIssues(ctx context.Context, c Caller, onlyPublished bool, limit, offset int) ([]*models.Issue, error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return nil, err
	}

	if !onlyPublished && !s.can(c, permission.IssueListUnpublished) {
		onlyPublished = true
	}

	issues, err := s.repo.Find(ctx, models.IssueFilter{OnlyPublished: onlyPublished}, limit, offset)
	if err != nil {
		return nil, services.Wrap(err)
	}
	return issues, nil
}

// GetListOfIssues returns the issues with the given ids. If any of them is
// unpublished and the caller may not read unpublished issues the whole
// request fails.
func (s *Service) GetListOfIssues(ctx context.Context, c Caller, ids []uuid.UUID, limit, offset int) ([]*models.Issue, error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Issue{}, nil
	}

	issues, err := s.repo.Find(ctx, models.IssueFilter{IDs: ids}, limit, offset)
	if err != nil {
		return nil, services.Wrap(err)
	}

	// TODO: return the readable issues alongside per-item errors instead of failing the list
	for _, issue := range issues {
		if !issue.IsPublished && !s.can(c, permission.IssueReadUnpublished) {
			return nil, services.NotFound(ReasonIssuesNotFound)
		}
	}

	return issues, nil
}

// CreateIssue creates a new unpublished issue
func (s *Service) CreateIssue(ctx context.Context, c Caller, in CreateInput) (*models.Issue, error) {
	if !s.can(c, permission.IssueWriteNew) {
		return nil, services.Forbidden(ReasonCreateForbidden)
	}

	if err := validate(in); err != nil {
		return nil, err
	}
	if err := checkFeatured(in.Articles, in.Featured); err != nil {
		return nil, err
	}

	issue := models.NewIssue(in.Name, in.Description, in.StartDate, in.EndDate,
		in.Articles, in.Featured, c.auth().MID, c.auth().UID())

	if err := s.repo.Create(ctx, issue); err != nil {
		return nil, services.Wrap(err)
	}

	s.logger.Info("issue created",
		zap.String("id", issue.ID.String()),
		zap.String("created_by", issue.CreatedBy))

	return issue, nil
}

// UpdateIssueProps updates the scalar properties of an issue
func (s *Service) UpdateIssueProps(ctx context.Context, c Caller, id uuid.UUID, in UpdatePropsInput) (*models.Issue, error) {
	if !s.can(c, permission.IssueWriteAll) {
		return nil, services.Forbidden(ReasonUpdateForbidden)
	}

	if err := validate(in); err != nil {
		return nil, err
	}

	patch := models.IssuePatch{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}

	issue, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.Issue, error) {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		start, end := current.StartDate, current.EndDate
		if patch.StartDate != nil {
			start = *patch.StartDate
		}
		if patch.EndDate != nil {
			end = *patch.EndDate
		}
		if end.Before(start) {
			return nil, services.BadRequest("The end date of an issue cannot be before its start date.", nil)
		}

		return s.repo.UpdateProps(ctx, id, patch, c.auth().UID())
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("issue props updated", zap.String("id", id.String()))
	return issue, nil
}

// UpdateIssueArticles replaces the articles of an issue. When featured is
// nil the current featured articles that remain in the issue are kept.
func (s *Service) UpdateIssueArticles(ctx context.Context, c Caller, id uuid.UUID, articles []uuid.UUID, featured []uuid.UUID) (*models.Issue, error) {
	if !s.can(c, permission.IssueWriteAll) {
		return nil, services.Forbidden(ReasonUpdateForbidden)
	}

	if articles == nil {
		articles = []uuid.UUID{}
	}
	if featured != nil {
		if err := checkFeatured(articles, featured); err != nil {
			return nil, err
		}
	}

	issue, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.Issue, error) {
		if featured == nil {
			current, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			featured = retain(current.Featured, articles)
		}

		return s.repo.UpdateArticles(ctx, id, articles, featured, c.auth().UID())
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("issue articles updated",
		zap.String("id", id.String()),
		zap.Int("articles", len(articles)),
		zap.Int("featured", len(issue.Featured)))
	return issue, nil
}

// RemoveIssue deletes an issue and returns it
func (s *Service) RemoveIssue(ctx context.Context, c Caller, id uuid.UUID) (*models.Issue, error) {
	if !s.can(c, permission.IssueWriteAll) {
		return nil, services.Forbidden(ReasonDeleteForbidden)
	}

	issue, err := s.repo.Remove(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("issue removed", zap.String("id", id.String()))
	return issue, nil
}

func mapRepoError(err error) error {
	if errors.Is(err, repositories.ErrIssueNotFound) {
		return services.NewAPIError(services.KindNotFound, ReasonIssueNotFound, err)
	}
	return services.Wrap(err)
}

func normalizePage(limit, offset int) (int, int, error) {
	if limit < 0 || offset < 0 {
		return 0, 0, services.BadRequest("Limit and offset cannot be negative.", nil)
	}
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return limit, offset, nil
}

func validate(in interface{}) error {
	if err := utils.ValidateStruct(in); err != nil {
		apiErr := services.BadRequest("The issue input is invalid.", err)
		for field, msg := range utils.GetValidationFields(err) {
			apiErr.WithDetail(field, msg)
		}
		return apiErr
	}
	return nil
}

// checkFeatured ensures every featured article belongs to the issue
func checkFeatured(articles, featured []uuid.UUID) error {
	set := make(map[uuid.UUID]struct{}, len(articles))
	for _, a := range articles {
		set[a] = struct{}{}
	}
	for _, f := range featured {
		if _, ok := set[f]; !ok {
			return services.BadRequest("Featured articles must be part of the issue.", nil).
				WithDetail("featured", f.String())
		}
	}
	return nil
}

// retain returns the ids of keep that are also in within
func retain(keep, within []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]struct{}, len(within))
	for _, id := range within {
		set[id] = struct{}{}
	}
	out := []uuid.UUID{}
	for _, id := range keep {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
