package permission

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/upb/newsroom-api/identity"
	"github.com/upb/newsroom-api/session"
	"gopkg.in/yaml.v3"
)

// Permissions checked by the issue operations
const (
	IssueReadUnpublished = "issue.read.unpublished"
	IssueListUnpublished = "issue.list.unpublished"
	IssueWriteNew        = "issue.write.new"
	IssueWriteAll        = "issue.write.all"
)

//go:embed permissions.yaml
var defaultTable []byte

// Predicate decides whether a caller holds a permission. Implementations
// must be free of side effects.
type Predicate interface {
	Exists(sess *session.Session, token string, claims *identity.Claims, permission string) bool
}

// tableFile is the YAML layout of a role table
type tableFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// RoleTable grants permissions through the roles a caller carries
type RoleTable struct {
	roles map[string][]string
	now   func() time.Time
}

// NewRoleTable creates a role table from a role to pattern mapping
func NewRoleTable(roles map[string][]string) *RoleTable {
	copied := make(map[string][]string, len(roles))
	for role, patterns := range roles {
		copied[role] = append([]string(nil), patterns...)
	}
	return &RoleTable{roles: copied, now: time.Now}
}

// ParseRoleTable parses a YAML role table
func ParseRoleTable(data []byte) (*RoleTable, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal role table: %w", err)
	}
	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("role table defines no roles")
	}
	for role, patterns := range f.Roles {
		for _, p := range patterns {
			if p == "" {
				return nil, fmt.Errorf("role %s has an empty permission pattern", role)
			}
		}
	}
	return NewRoleTable(f.Roles), nil
}

// LoadRoleTable reads the role table at path, or the built-in table when
// path is empty
func LoadRoleTable(path string) (*RoleTable, error) {
	if path == "" {
		return DefaultRoleTable()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role table: %w", err)
	}
	return ParseRoleTable(data)
}

// DefaultRoleTable returns the built-in role table
func DefaultRoleTable() (*RoleTable, error) {
	return ParseRoleTable(defaultTable)
}

// Exists reports whether the caller holds permission. Roles come from the
// verified claims when present, otherwise from a session whose cached auth
// state is still valid for token.
func (t *RoleTable) Exists(sess *session.Session, token string, claims *identity.Claims, permission string) bool {
	var roles []string
	switch {
	case claims != nil:
		roles = claims.Roles
	case session.Valid(sess, token, t.now()):
		roles = sess.Auth.Roles
	default:
		return false
	}

	for _, role := range roles {
		if t.grants(role, permission) {
			return true
		}
	}
	return false
}

// Permissions returns the patterns granted to role
func (t *RoleTable) Permissions(role string) []string {
	return append([]string(nil), t.roles[role]...)
}

func (t *RoleTable) grants(role, permission string) bool {
	for _, pattern := range t.roles[role] {
		if Match(pattern, permission) {
			return true
		}
	}
	return false
}

// Match reports whether permission satisfies pattern
func Match(pattern, permission string) bool {
	if pattern == permission {
		return true
	}
	if permission == "" {
		return false
	}

	ps := strings.Split(pattern, ".")
	qs := strings.Split(permission, ".")

	for i, seg := range ps {
		last := i == len(ps)-1
		if seg == "*" && last {
			return len(qs) > i
		}
		if i >= len(qs) {
			return false
		}
		if seg != "*" && seg != qs[i] {
			return false
		}
	}
	return len(ps) == len(qs)
}
