package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/upb/newsroom-api/utils"
	"go.uber.org/zap"
)

// maxGraphQLBody bounds the size of a POSTed GraphQL request
const maxGraphQLBody = 1 << 20

// GraphQLExecutor runs GraphQL requests
type GraphQLExecutor interface {
	Execute(ctx context.Context, query string, variables map[string]interface{}, operationName string) *graphql.Result
}

// GraphQLRequest is the JSON body of a GraphQL request
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// GraphQLHandler serves the GraphQL endpoint
type GraphQLHandler struct {
	executor GraphQLExecutor
	logger   *zap.Logger
}

// NewGraphQLHandler creates a new GraphQLHandler
func NewGraphQLHandler(executor GraphQLExecutor, logger *zap.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		executor: executor,
		logger:   logger,
	}
}

// ServeHTTP handles GET and POST /graphql
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				_ = utils.WriteError(w, http.StatusBadRequest, "variables must be a JSON object", nil)
				return
			}
		}

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxGraphQLBody))
		if err != nil {
			_ = utils.WriteError(w, http.StatusBadRequest, "failed to read request body", nil)
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			_ = utils.WriteError(w, http.StatusBadRequest, "request body must be a JSON GraphQL request", nil)
			return
		}

	default:
		w.Header().Set("Allow", "GET, POST")
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "only GET and POST are supported", nil)
		return
	}

	if req.Query == "" {
		_ = utils.WriteError(w, http.StatusBadRequest, "query is required", nil)
		return
	}

	result := h.executor.Execute(r.Context(), req.Query, req.Variables, req.OperationName)
	if result.HasErrors() {
		h.logger.Debug("graphql request completed with errors",
			zap.String("operation", req.OperationName),
			zap.Int("errors", len(result.Errors)))
	}

	if err := utils.WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("failed to write graphql response", zap.Error(err))
	}
}
