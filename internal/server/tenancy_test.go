package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
)

type stubQueryRower struct {
	row pgx.Row
}

func (s stubQueryRower) QueryRow(context.Context, string, ...any) pgx.Row { return s.row }

type stubRow struct {
	vals []any
	err  error
}

func (r *stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		if i >= len(r.vals) {
			break
		}
		if p, ok := dest[i].(*string); ok {
			*p = r.vals[i].(string)
		}
	}
	return nil
}

func TestTenancyDBResolver_ResolveTenant(t *testing.T) {
	r := &tenancyDBResolver{
		q: stubQueryRower{row: &stubRow{vals: []any{
			"tid", "acme", "Acme Consultoria", "12.345.678/0001-00", "Av. Central 100", "logos/acme.png", "tpl-1", "# {{tenant_name}}",
		}}},
	}
	got, ok, err := r.ResolveTenant(context.Background(), "  ACME ")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected ok")
	}
	if got.ID != "tid" || got.Slug != "acme" || got.Name != "Acme Consultoria" {
		t.Fatalf("got=%+v", got)
	}
	if got.LogoPath != "logos/acme.png" || got.ContractTemplate != "# {{tenant_name}}" {
		t.Fatalf("got=%+v", got)
	}
}

func TestTenancyDBResolver_ResolveTenant_NotFound(t *testing.T) {
	r := &tenancyDBResolver{
		q: stubQueryRower{row: &stubRow{err: pgx.ErrNoRows}},
	}
	_, ok, err := r.ResolveTenant(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected not found")
	}
}

func TestTenancyDBResolver_ResolveTenant_Error(t *testing.T) {
	r := &tenancyDBResolver{
		q: stubQueryRower{row: &stubRow{err: errors.New("boom")}},
	}
	_, _, err := r.ResolveTenant(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestTenancyDBResolver_ResolveTenant_EmptySlug(t *testing.T) {
	r := &tenancyDBResolver{
		q: stubQueryRower{row: &stubRow{err: errors.New("should not query")}},
	}
	_, ok, err := r.ResolveTenant(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected not found")
	}
}

func TestStaticTenancyResolverFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	if err := os.WriteFile(path, []byte(`
tenants:
  - id: "11111111-1111-1111-1111-111111111111"
    slug: acme
    name: Acme Consultoria
    tax_id: "12.345.678/0001-00"
`), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := newStaticTenancyResolverFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := r.ResolveTenant(context.Background(), "acme")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.Name != "Acme Consultoria" {
		t.Fatalf("got=%+v ok=%v", got, ok)
	}

	_, ok, _ = r.ResolveTenant(context.Background(), "other")
	if ok {
		t.Fatal("expected not found")
	}
}

func TestStaticTenancyResolverFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	if err := os.WriteFile(path, []byte("tenants: []"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := newStaticTenancyResolverFromFile(path); err == nil {
		t.Fatal("expected error for empty tenants")
	}
}
