package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/upb/newsroom-api/authctx"
	"github.com/upb/newsroom-api/middleware"
	"github.com/upb/newsroom-api/models"
	"github.com/upb/newsroom-api/services"
	"github.com/upb/newsroom-api/services/issue"
	"github.com/upb/newsroom-api/utils"
)

// callerFromContext reads the identity attached by the session and auth middleware
func callerFromContext(ctx context.Context) issue.Caller {
	return issue.Caller{
		Auth:    authctx.FromContext(ctx),
		Session: middleware.GetSessionFromContext(ctx),
	}
}

func (s *Schema) resolveGetIssueByID(p graphql.ResolveParams) (interface{}, error) {
	id, err := idArg(p.Args, "id")
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}
	return s.issueResult(s.issues.GetIssueByID(p.Context, callerFromContext(p.Context), id))
}

func (s *Schema) resolveGetLatestIssues(p graphql.ResolveParams) (interface{}, error) {
	onlyPublished, ok := p.Args["onlyPublished"].(bool)
	if !ok {
		onlyPublished = true
	}
	limit, offset := pageArgs(p.Args)

	issues, err := s.issues.GetLatestIssues(p.Context, callerFromContext(p.Context), onlyPublished, limit, offset)
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}
	return issues, nil
}

func (s *Schema) resolveGetListOfIssues(p graphql.ResolveParams) (interface{}, error) {
	ids, err := idListArg(p.Args, "ids")
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}
	limit, offset := pageArgs(p.Args)

	issues, err := s.issues.GetListOfIssues(p.Context, callerFromContext(p.Context), ids, limit, offset)
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}
	return issues, nil
}

func (s *Schema) resolveCreateIssue(p graphql.ResolveParams) (interface{}, error) {
	articles, err := idListArg(p.Args, "articles")
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}
	featured, err := idListArg(p.Args, "featured")
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}

	in := issue.CreateInput{
		Articles: articles,
		Featured: featured,
	}
	in.Name, _ = p.Args["name"].(string)
	in.Description, _ = p.Args["description"].(string)
	in.StartDate, _ = p.Args["startDate"].(time.Time)
	in.EndDate, _ = p.Args["endDate"].(time.Time)

	return s.issueResult(s.issues.CreateIssue(p.Context, callerFromContext(p.Context), in))
}

func (s *Schema) resolveUpdateIssueProps(p graphql.ResolveParams) (interface{}, error) {
	id, err := idArg(p.Args, "id")
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}

	var in issue.UpdatePropsInput
	if v, ok := p.Args["name"].(string); ok {
		in.Name = &v
	}
	if v, ok := p.Args["description"].(string); ok {
		in.Description = &v
	}
	if v, ok := p.Args["startDate"].(time.Time); ok {
		in.StartDate = &v
	}
	if v, ok := p.Args["endDate"].(time.Time); ok {
		in.EndDate = &v
	}

	return s.issueResult(s.issues.UpdateIssueProps(p.Context, callerFromContext(p.Context), id, in))
}

func (s *Schema) resolveUpdateIssueArticles(p graphql.ResolveParams) (interface{}, error) {
	id, err := idArg(p.Args, "id")
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}
	articles, err := idListArg(p.Args, "articles")
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}
	featured, err := idListArg(p.Args, "featured")
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}

	return s.issueResult(s.issues.UpdateIssueArticles(p.Context, callerFromContext(p.Context), id, articles, featured))
}

func (s *Schema) resolveRemoveIssue(p graphql.ResolveParams) (interface{}, error) {
	id, err := idArg(p.Args, "id")
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}
	return s.issueResult(s.issues.RemoveIssue(p.Context, callerFromContext(p.Context), id))
}

// issueResult avoids handing a typed nil to the executor
func (s *Schema) issueResult(i *models.Issue, err error) (interface{}, error) {
	if err != nil {
		return nil, toGraphError(err, s.logger)
	}
	if i == nil {
		return nil, nil
	}
	return i, nil
}

func pageArgs(args map[string]interface{}) (int, int) {
	limit, ok := args["limit"].(int)
	if !ok {
		limit = issue.DefaultLimit
	}
	offset, ok := args["offset"].(int)
	if !ok {
		offset = issue.DefaultOffset
	}
	return limit, offset
}

func idArg(args map[string]interface{}, name string) (uuid.UUID, error) {
	s, _ := args[name].(string)
	id, err := utils.ParseUUID(s, name)
	if err != nil {
		return uuid.Nil, services.BadRequest(err.Error(), err)
	}
	return id, nil
}

// idListArg returns nil when the argument was omitted or null
func idListArg(args map[string]interface{}, name string) ([]uuid.UUID, error) {
	raw, ok := args[name].([]interface{})
	if !ok {
		return nil, nil
	}

	strs := make([]string, 0, len(raw))
	for _, v := range raw {
		s, _ := v.(string)
		strs = append(strs, s)
	}

	ids, err := utils.ParseUUIDs(strs, name)
	if err != nil {
		return nil, services.BadRequest(err.Error(), err)
	}
	return ids, nil
}
