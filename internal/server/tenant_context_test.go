package server

import (
	"context"
	"testing"

	"github.com/seivahq/painel/modules/proposal/domain/types"
)

func TestTenantContext(t *testing.T) {
	tenant := types.TenantProfile{ID: "t1", Slug: "acme", Name: "Acme"}
	ctx := withTenant(context.Background(), tenant)

	got, ok := currentTenant(ctx)
	if !ok {
		t.Fatal("expected tenant")
	}
	if got.ID != tenant.ID || got.Slug != tenant.Slug || got.Name != tenant.Name {
		t.Fatalf("got=%+v", got)
	}

	if _, ok := currentTenant(context.Background()); ok {
		t.Fatal("expected no tenant on empty context")
	}
}
