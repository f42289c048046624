package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/upb/newsroom-api/models"
	"github.com/upb/newsroom-api/services/issue"
	"go.uber.org/zap"
)

// IssueService is the issue API exposed through the schema
type IssueService interface {
	GetIssueByID(ctx context.Context, c issue.Caller, id uuid.UUID) (*models.Issue, error)
	GetLatestIssues(ctx context.Context, c issue.Caller, onlyPublished bool, limit, offset int) ([]*models.Issue, error)
	GetListOfIssues(ctx context.Context, c issue.Caller, ids []uuid.UUID, limit, offset int) ([]*models.Issue, error)
	CreateIssue(ctx context.Context, c issue.Caller, in issue.CreateInput) (*models.Issue, error)
	UpdateIssueProps(ctx context.Context, c issue.Caller, id uuid.UUID, in issue.UpdatePropsInput) (*models.Issue, error)
	UpdateIssueArticles(ctx context.Context, c issue.Caller, id uuid.UUID, articles []uuid.UUID, featured []uuid.UUID) (*models.Issue, error)
	RemoveIssue(ctx context.Context, c issue.Caller, id uuid.UUID) (*models.Issue, error)
}

// Schema represents the GraphQL schema
type Schema struct {
	schema graphql.Schema
	issues IssueService
	logger *zap.Logger
}

// NewSchema creates a new GraphQL schema
func NewSchema(issues IssueService, logger *zap.Logger) (*Schema, error) {
	s := &Schema{
		issues: issues,
		logger: logger,
	}

	issueType := s.defineIssueType()

	pageArgs := func(args graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		args["limit"] = &graphql.ArgumentConfig{
			Type:         graphql.Int,
			DefaultValue: issue.DefaultLimit,
			Description:  fmt.Sprintf("Number of items per page (default: %d, max: %d)", issue.DefaultLimit, issue.MaxLimit),
		}
		args["offset"] = &graphql.ArgumentConfig{
			Type:         graphql.Int,
			DefaultValue: issue.DefaultOffset,
			Description:  "Number of items to skip",
		}
		return args
	}

	idList := graphql.NewList(graphql.NewNonNull(graphql.ID))

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"getIssueByID": &graphql.Field{
				Type: issueType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: s.resolveGetIssueByID,
			},
			"getLatestIssues": &graphql.Field{
				Type:        graphql.NewList(issueType),
				Description: "Issues ordered newest first",
				Args: pageArgs(graphql.FieldConfigArgument{
					"onlyPublished": &graphql.ArgumentConfig{
						Type:         graphql.Boolean,
						DefaultValue: true,
					},
				}),
				Resolve: s.resolveGetLatestIssues,
			},
			"getListOfIssues": &graphql.Field{
				Type: graphql.NewList(issueType),
				Args: pageArgs(graphql.FieldConfigArgument{
					"ids": &graphql.ArgumentConfig{Type: graphql.NewNonNull(idList)},
				}),
				Resolve: s.resolveGetListOfIssues,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createIssue": &graphql.Field{
				Type: issueType,
				Args: graphql.FieldConfigArgument{
					"name":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
					"startDate":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(DateTime)},
					"endDate":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(DateTime)},
					"articles":    &graphql.ArgumentConfig{Type: idList},
					"featured":    &graphql.ArgumentConfig{Type: idList},
				},
				Resolve: s.resolveCreateIssue,
			},
			"updateIssueProps": &graphql.Field{
				Type: issueType,
				Args: graphql.FieldConfigArgument{
					"id":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"name":        &graphql.ArgumentConfig{Type: graphql.String},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
					"startDate":   &graphql.ArgumentConfig{Type: DateTime},
					"endDate":     &graphql.ArgumentConfig{Type: DateTime},
				},
				Resolve: s.resolveUpdateIssueProps,
			},
			"updateIssueArticles": &graphql.Field{
				Type:        issueType,
				Description: "Replace the articles of an issue. Omitting featured keeps the featured articles that remain.",
				Args: graphql.FieldConfigArgument{
					"id":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"articles": &graphql.ArgumentConfig{Type: graphql.NewNonNull(idList)},
					"featured": &graphql.ArgumentConfig{Type: idList},
				},
				Resolve: s.resolveUpdateIssueArticles,
			},
			"removeIssue": &graphql.Field{
				Type: issueType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: s.resolveRemoveIssue,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql schema: %w", err)
	}

	s.schema = schema
	return s, nil
}

// GetSchema returns the GraphQL schema
func (s *Schema) GetSchema() graphql.Schema {
	return s.schema
}

// Execute runs a GraphQL request
func (s *Schema) Execute(ctx context.Context, query string, variables map[string]interface{}, operationName string) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  query,
		VariableValues: variables,
		OperationName:  operationName,
		Context:        ctx,
	})
}

func (s *Schema) defineIssueType() *graphql.Object {
	issueField := func(typ graphql.Output, get func(*models.Issue) interface{}) *graphql.Field {
		return &graphql.Field{
			Type: typ,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				i, ok := p.Source.(*models.Issue)
				if !ok {
					return nil, nil
				}
				return get(i), nil
			},
		}
	}
	ids := graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID)))

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Issue",
		Fields: graphql.Fields{
			"id":          issueField(graphql.NewNonNull(graphql.ID), func(i *models.Issue) interface{} { return i.ID.String() }),
			"name":        issueField(graphql.NewNonNull(graphql.String), func(i *models.Issue) interface{} { return i.Name }),
			"description": issueField(graphql.String, func(i *models.Issue) interface{} { return i.Description }),
			"startDate":   issueField(graphql.NewNonNull(DateTime), func(i *models.Issue) interface{} { return i.StartDate }),
			"endDate":     issueField(graphql.NewNonNull(DateTime), func(i *models.Issue) interface{} { return i.EndDate }),
			"articles":    issueField(ids, func(i *models.Issue) interface{} { return uuidStrings(i.Articles) }),
			"featured":    issueField(ids, func(i *models.Issue) interface{} { return uuidStrings(i.Featured) }),
			"isPublished": issueField(graphql.NewNonNull(graphql.Boolean), func(i *models.Issue) interface{} { return i.IsPublished }),
			"mid":         issueField(graphql.String, func(i *models.Issue) interface{} { return i.MID }),
			"createdBy":   issueField(graphql.String, func(i *models.Issue) interface{} { return i.CreatedBy }),
			"updatedBy":   issueField(graphql.String, func(i *models.Issue) interface{} { return i.UpdatedBy }),
			"createdAt":   issueField(DateTime, func(i *models.Issue) interface{} { return i.CreatedAt }),
			"updatedAt":   issueField(DateTime, func(i *models.Issue) interface{} { return i.UpdatedAt }),
		},
	})
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
