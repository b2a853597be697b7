package server

import (
	"context"

	"github.com/seivahq/painel/modules/proposal/domain/types"
)

type tenantCtxKey struct{}

func withTenant(ctx context.Context, tenant types.TenantProfile) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tenant)
}

func currentTenant(ctx context.Context) (types.TenantProfile, bool) {
	t, ok := ctx.Value(tenantCtxKey{}).(types.TenantProfile)
	return t, ok
}
