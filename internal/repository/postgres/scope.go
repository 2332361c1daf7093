package postgres

import (
	"fmt"

	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

// scopeCondition renders a tenant scope as a SQL condition on column,
// appending any bind values to args. Placeholder numbering continues
// from the current length of args, so conditions compose with other
// filters in the same query.
//
// The three scope states map onto three predicates:
//   - bypass (nil scope)  -> TRUE   (no tenant filtering)
//   - empty scope         -> FALSE  (matches nothing)
//   - populated scope     -> column = ANY(list)
//
// The base predicate is always present, so callers can uniformly write
// "WHERE <scope> AND <more>" without special-casing.
func scopeCondition(scope repository.TenantScope, column string, args *[]any) string {
	if scope.Bypass() {
		return "TRUE"
	}
	if len(scope) == 0 {
		return "FALSE"
	}

	uuids := make([]string, 0, len(scope))
	for _, tenantUUID := range scope {
		uuids = append(uuids, tenantUUID.String())
	}
	*args = append(*args, uuids)
	return fmt.Sprintf("%s = ANY($%d::uuid[])", column, len(*args))
}

// inCondition renders "column IN (list)" for a uuid membership filter.
func inCondition(column string, uuids []string, args *[]any) string {
	*args = append(*args, uuids)
	return fmt.Sprintf("%s = ANY($%d::uuid[])", column, len(*args))
}
