package postgres

import (
	"testing"

	"github.com/google/uuid"

	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

func TestScopeConditionBypass(t *testing.T) {
	args := []any{}
	cond := scopeCondition(repository.ScopeAll(), "tenant_uuid", &args)

	if cond != "TRUE" {
		t.Fatalf("expected TRUE, got %q", cond)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %d", len(args))
	}
}

func TestScopeConditionEmpty(t *testing.T) {
	args := []any{}
	cond := scopeCondition(repository.NewTenantScope(), "tenant_uuid", &args)

	if cond != "FALSE" {
		t.Fatalf("expected FALSE, got %q", cond)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %d", len(args))
	}
}

func TestScopeConditionTenants(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	args := []any{}
	cond := scopeCondition(repository.NewTenantScope(tenantA, tenantB), "tenant_uuid", &args)

	if cond != "tenant_uuid = ANY($1::uuid[])" {
		t.Fatalf("unexpected condition %q", cond)
	}
	if len(args) != 1 {
		t.Fatalf("expected one arg, got %d", len(args))
	}
	uuids, ok := args[0].([]string)
	if !ok {
		t.Fatalf("expected []string arg, got %T", args[0])
	}
	if len(uuids) != 2 || uuids[0] != tenantA.String() || uuids[1] != tenantB.String() {
		t.Fatalf("unexpected uuids %v", uuids)
	}
}

// Placeholder numbering must continue from existing args so scope and
// entity filters compose in one WHERE clause.
func TestScopeConditionComposes(t *testing.T) {
	args := []any{uuid.New()}
	cond := scopeCondition(repository.NewTenantScope(uuid.New()), "tenant_uuid", &args)

	if cond != "tenant_uuid = ANY($2::uuid[])" {
		t.Fatalf("unexpected condition %q", cond)
	}

	cond = inCondition("uuid", []string{uuid.New().String()}, &args)
	if cond != "uuid = ANY($3::uuid[])" {
		t.Fatalf("unexpected condition %q", cond)
	}
	if len(args) != 3 {
		t.Fatalf("expected three args, got %d", len(args))
	}
}
