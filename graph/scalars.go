package graph

import (
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// DateTime is an RFC 3339 timestamp
var DateTime = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "DateTime",
	Description: "An RFC 3339 timestamp, e.g. 2024-03-01T00:00:00Z",
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case time.Time:
			return v.UTC().Format(time.RFC3339)
		case *time.Time:
			if v == nil {
				return nil
			}
			return v.UTC().Format(time.RFC3339)
		}
		return nil
	},
	ParseValue: func(value interface{}) interface{} {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		return parseDateTime(s)
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		v, ok := valueAST.(*ast.StringValue)
		if !ok {
			return nil
		}
		return parseDateTime(v.Value)
	},
})

// parseDateTime returns nil for unparseable input so the executor reports
// an invalid argument
func parseDateTime(s string) interface{} {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return t
}
