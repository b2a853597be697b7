package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schemaSQL string

func main() {
	if len(os.Args) < 2 {
		fatalf("usage: dbtool <migrate|seed|rls-smoke> [args]")
	}

	switch os.Args[1] {
	case "migrate":
		migrate(os.Args[2:])
	case "seed":
		seed(os.Args[2:])
	case "rls-smoke":
		rlsSmoke(os.Args[2:])
	default:
		fatalf("unknown subcommand: %s", os.Args[1])
	}
}

func connectFlag(name string, args []string) *pgx.Conn {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url string
	fs.StringVar(&url, "url", "", "postgres connection string")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		fatalf("missing --url (or DATABASE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		fatal(err)
	}
	return conn
}

func migrate(args []string) {
	conn := connectFlag("migrate", args)
	defer conn.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		if msg, ok := pgErrorMessage(err); ok {
			fatalf("migrate: %s", msg)
		}
		fatal(err)
	}
	_ = tryEnsureRole(ctx, conn, "app_nobypassrls")
	fmt.Println("schema applied")
}

// seed inserts a demo tenant with one draft proposal so the public
// page can be exercised end to end against a local database.
func seed(args []string) {
	conn := connectFlag("seed", args)
	defer conn.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const (
		tenantID   = "11111111-1111-1111-1111-111111111111"
		templateID = "33333333-3333-3333-3333-333333333333"
		partyID    = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
		proposalID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
		commitID   = "cccccccc-cccc-cccc-cccc-cccccccccccc"
		itemID     = "dddddddd-dddd-dddd-dddd-dddddddddddd"
		offeringID = "eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee"
		deliverID  = "ffffffff-ffff-ffff-ffff-ffffffffffff"
	)

	tx, err := conn.Begin(ctx)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO iam.contract_templates (id, body)
VALUES ($1, E'# SERVICE AGREEMENT\n{{tenant_name}} and {{party_name}} agree as follows.\n# SCOPE OF WORK\n{{scope_items}}\nGenerated at {{generated_at}}.')
ON CONFLICT (id) DO NOTHING`, templateID); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO iam.tenants (id, slug, name, tax_id, address, logo_path, contract_template_id)
VALUES ($1, 'acme', 'Acme Consultoria', '12.345.678/0001-00', 'Av. Central 100, Sao Paulo - SP', 'logos/acme.png', $2)
ON CONFLICT (id) DO NOTHING`, tenantID, templateID); err != nil {
		fatal(err)
	}

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		fatal(err)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO crm.parties (id, tenant_id, name, tax_id, email, phone, address)
VALUES ($1, $2, 'Cliente Exemplo', '123.456.789-00', 'cliente@example.com', '+55 11 99999-0000', 'Rua A 1, Sao Paulo - SP')
ON CONFLICT (tenant_id, id) DO NOTHING`, partyID, tenantID); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO catalog.commitments (id, tenant_id, name)
VALUES ($1, $2, 'Onboarding')
ON CONFLICT (tenant_id, id) DO NOTHING`, commitID, tenantID); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO catalog.offerings (id, tenant_id, name)
VALUES ($1, $2, 'Consultoria')
ON CONFLICT (tenant_id, id) DO NOTHING`, offeringID, tenantID); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO catalog.commitment_items (id, tenant_id, commitment_id, offering_id, quantity, position)
VALUES ($1, $2, $3, $4, 1, 0)
ON CONFLICT (tenant_id, id) DO NOTHING`, itemID, tenantID, commitID, offeringID); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO catalog.deliverable_templates (id, tenant_id, offering_id, name)
VALUES ($1, $2, $3, 'Diagnostico inicial')
ON CONFLICT (tenant_id, id) DO NOTHING`, deliverID, tenantID, offeringID); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO proposal.proposals (id, tenant_id, party_id, token, selected_ids, status)
VALUES ($1, $2, $3, 'demo-token', ARRAY[$4]::text[], 'DRAFT')
ON CONFLICT (tenant_id, id) DO NOTHING`, proposalID, tenantID, partyID, commitID); err != nil {
		fatal(err)
	}

	if err := tx.Commit(ctx); err != nil {
		fatal(err)
	}
	fmt.Println("demo tenant seeded: /p/api/proposal?tenant_slug=acme&token=demo-token")
}

// rlsSmoke proves that row level security fails closed when
// app.current_tenant is unset and isolates tenants from each other.
func rlsSmoke(args []string) {
	conn := connectFlag("rls-smoke", args)
	defer conn.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = tryEnsureRole(ctx, conn, "app_nobypassrls")

	tx, err := conn.Begin(ctx)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	_ = trySetRole(ctx, tx, "app_nobypassrls")
	if _, err := tx.Exec(ctx, `CREATE TEMP TABLE rls_smoke (tenant_id uuid NOT NULL, val text NOT NULL);`); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `ALTER TABLE rls_smoke ENABLE ROW LEVEL SECURITY;`); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `ALTER TABLE rls_smoke FORCE ROW LEVEL SECURITY;`); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `
CREATE POLICY tenant_isolation ON rls_smoke
USING (tenant_id = public.current_tenant_id())
WITH CHECK (tenant_id = public.current_tenant_id());`); err != nil {
		fatal(err)
	}

	if _, err := tx.Exec(ctx, `SAVEPOINT sp_failclosed;`); err != nil {
		fatal(err)
	}
	_, err = tx.Exec(ctx, `SELECT count(*) FROM rls_smoke;`)
	if _, rbErr := tx.Exec(ctx, `ROLLBACK TO SAVEPOINT sp_failclosed;`); rbErr != nil {
		fatal(rbErr)
	}
	if err == nil {
		fatalf("expected fail-closed error when app.current_tenant is missing")
	}

	tenantA := "00000000-0000-0000-0000-00000000000a"
	tenantB := "00000000-0000-0000-0000-00000000000b"
	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantA); err != nil {
		fatal(err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO rls_smoke (tenant_id, val) VALUES ($1, 'a');`, tenantA); err != nil {
		fatal(err)
	}

	if _, err := tx.Exec(ctx, `SAVEPOINT sp_cross_insert;`); err != nil {
		fatal(err)
	}
	_, err = tx.Exec(ctx, `INSERT INTO rls_smoke (tenant_id, val) VALUES ($1, 'b');`, tenantB)
	if _, rbErr := tx.Exec(ctx, `ROLLBACK TO SAVEPOINT sp_cross_insert;`); rbErr != nil {
		fatal(rbErr)
	}
	if err == nil {
		fatalf("expected RLS rejection on cross-tenant insert")
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM rls_smoke;`).Scan(&count); err != nil {
		fatal(err)
	}
	if count != 1 {
		fatalf("expected count=1 under tenant A, got %d", count)
	}

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantB); err != nil {
		fatal(err)
	}
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM rls_smoke;`).Scan(&count); err != nil {
		fatal(err)
	}
	if count != 0 {
		fatalf("expected count=0 under tenant B, got %d", count)
	}

	fmt.Println("rls smoke ok")
}

func pgErrorMessage(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	return pgErr.Message, true
}

func tryEnsureRole(ctx context.Context, conn *pgx.Conn, role string) error {
	if !validSQLIdent(role) {
		return fmt.Errorf("invalid role: %s", role)
	}

	stmt := fmt.Sprintf(`DO $$
BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = '%s') THEN
    EXECUTE 'CREATE ROLE %s NOBYPASSRLS';
  END IF;
END
$$;`, role, role)
	if _, err := conn.Exec(ctx, stmt); err != nil {
		return err
	}
	for _, schema := range []string{"public", "iam", "crm", "catalog", "proposal", "timeline"} {
		_, _ = conn.Exec(ctx, `GRANT USAGE ON SCHEMA `+schema+` TO `+role+`;`)
		_, _ = conn.Exec(ctx, `GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA `+schema+` TO `+role+`;`)
		_, _ = conn.Exec(ctx, `GRANT USAGE, SELECT ON ALL SEQUENCES IN SCHEMA `+schema+` TO `+role+`;`)
		_, _ = conn.Exec(ctx, `GRANT EXECUTE ON ALL FUNCTIONS IN SCHEMA `+schema+` TO `+role+`;`)
	}
	return nil
}

func trySetRole(ctx context.Context, tx pgx.Tx, role string) bool {
	if _, err := tx.Exec(ctx, `SET ROLE `+role+`;`); err != nil {
		return false
	}
	return true
}

var reSQLIdent = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validSQLIdent(s string) bool {
	return reSQLIdent.MatchString(s)
}

func fatal(err error) {
	if err == nil {
		os.Exit(1)
	}
	fatalf("%v", err)
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
