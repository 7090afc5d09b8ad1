package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/user/record-api/internal/domain"
)

// scopedWhere builds the WHERE clause for a tenant-scoped query. The tenant
// conjunct comes first and is unconditional: every query built here is
// intersected with the caller's site, whether or not any filters were
// supplied, so a foreign tenant's row can never match.
func scopedWhere(tc domain.TenantContext, filters []domain.Filter, columns map[string]string) (string, []any, error) {
	allowed := make(map[string]bool, len(columns))
	for f := range columns {
		allowed[f] = true
	}
	if err := domain.ValidateFilters(filters, allowed); err != nil {
		return "", nil, err
	}

	clauses := []string{"site_id = $1"}
	args := []any{tc.SiteID}

	for _, f := range filters {
		col := columns[f.Field]
		switch f.Op {
		case domain.OpEquals:
			args = append(args, f.Value)
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, len(args)))
		case domain.OpContains:
			args = append(args, fmt.Sprintf("%%%v%%", f.Value))
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
		case domain.OpInSet:
			args = append(args, pq.Array(f.Values))
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", col, len(args)))
		case domain.OpBetween:
			args = append(args, f.Lo, f.Hi)
			clauses = append(clauses, fmt.Sprintf("%s BETWEEN $%d AND $%d", col, len(args)-1, len(args)))
		case domain.OpGTE:
			args = append(args, f.Value)
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", col, len(args)))
		case domain.OpLTE:
			args = append(args, f.Value)
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", col, len(args)))
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

// orderClause builds the ORDER BY clause from a whitelisted sort field. An
// unknown field falls back to the default ordering rather than interpolating
// caller input into SQL.
func orderClause(sort domain.Sort, columns map[string]string, fallback string) string {
	col, ok := columns[sort.Field]
	if !ok {
		return fallback
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir)
}

func pageOffset(page domain.Page) int {
	return (page.Number - 1) * page.Size
}
