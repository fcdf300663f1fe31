package postgres

import (
	"fmt"
	"strings"
)

// queryBuilder collects WHERE conditions with numbered placeholders. Each
// condition is a format string whose %s (or %[1]s) verbs receive the
// placeholder of its single argument.
type queryBuilder struct {
	conds []string
	args  []any
}

func (b *queryBuilder) where(cond string, arg any) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, fmt.Sprintf(cond, fmt.Sprintf("$%d", len(b.args))))
}

// containsPattern returns an ILIKE pattern matching term anywhere. LIKE
// metacharacters in term are escaped with backslash, the default ESCAPE
// character in PostgreSQL, so they match literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (b *queryBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}
