package server

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/seivahq/painel/modules/proposal/domain/types"
)

// TenancyResolver maps a tenant slug from the public URL to the tenant
// profile used for contract rendering and branding.
type TenancyResolver interface {
	ResolveTenant(ctx context.Context, slug string) (types.TenantProfile, bool, error)
}

type staticTenancyResolver struct {
	tenants map[string]types.TenantProfile
}

func newStaticTenancyResolver(tenants map[string]types.TenantProfile) TenancyResolver {
	m := make(map[string]types.TenantProfile, len(tenants))
	for k, v := range tenants {
		m[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &staticTenancyResolver{tenants: m}
}

func (r *staticTenancyResolver) ResolveTenant(_ context.Context, slug string) (types.TenantProfile, bool, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return types.TenantProfile{}, false, nil
	}
	t, ok := r.tenants[slug]
	return t, ok, nil
}

type tenantsFile struct {
	Tenants []struct {
		ID                 string `yaml:"id"`
		Slug               string `yaml:"slug"`
		Name               string `yaml:"name"`
		TaxID              string `yaml:"tax_id"`
		Address            string `yaml:"address"`
		LogoPath           string `yaml:"logo_path"`
		ContractTemplateID string `yaml:"contract_template_id"`
		ContractTemplate   string `yaml:"contract_template"`
	} `yaml:"tenants"`
}

// newStaticTenancyResolverFromFile loads tenants from the yaml file at
// TENANTS_PATH. Used for local runs without a database.
func newStaticTenancyResolverFromFile(path string) (TenancyResolver, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f tenantsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if len(f.Tenants) == 0 {
		return nil, errors.New("tenants: file has no tenants")
	}

	m := make(map[string]types.TenantProfile, len(f.Tenants))
	for _, t := range f.Tenants {
		if t.Slug == "" || t.Name == "" {
			return nil, errors.New("tenants: slug and name are required")
		}
		m[t.Slug] = types.TenantProfile{
			ID:                 t.ID,
			Slug:               t.Slug,
			Name:               t.Name,
			TaxID:              t.TaxID,
			Address:            t.Address,
			LogoPath:           t.LogoPath,
			ContractTemplateID: t.ContractTemplateID,
			ContractTemplate:   t.ContractTemplate,
		}
	}
	return newStaticTenancyResolver(m), nil
}

type tenancyDBResolver struct {
	q queryRower
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func newTenancyDBResolver(pool *pgxpool.Pool) TenancyResolver {
	return &tenancyDBResolver{q: pool}
}

func (r *tenancyDBResolver) ResolveTenant(ctx context.Context, slug string) (types.TenantProfile, bool, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return types.TenantProfile{}, false, nil
	}

	var t types.TenantProfile
	err := r.q.QueryRow(ctx, `
SELECT t.id::text, t.slug, t.name,
       COALESCE(t.tax_id, ''), COALESCE(t.address, ''), COALESCE(t.logo_path, ''),
       COALESCE(t.contract_template_id::text, ''), COALESCE(ct.body, '')
FROM iam.tenants t
LEFT JOIN iam.contract_templates ct ON ct.id = t.contract_template_id
WHERE t.slug = $1
  AND t.is_active = true
LIMIT 1
`, slug).Scan(&t.ID, &t.Slug, &t.Name, &t.TaxID, &t.Address, &t.LogoPath, &t.ContractTemplateID, &t.ContractTemplate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.TenantProfile{}, false, nil
		}
		return types.TenantProfile{}, false, err
	}
	return t, true, nil
}
