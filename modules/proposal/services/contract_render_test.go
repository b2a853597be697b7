package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seivahq/painel/modules/proposal/domain/types"
)

func renderInput() ContractInput {
	return ContractInput{
		Tenant: types.TenantProfile{
			Name:    "Acme Consultoria",
			TaxID:   "12.345.678/0001-00",
			Address: "Av. Central 100, Sao Paulo - SP",
		},
		Party: types.Party{
			Name:  "Cliente Exemplo",
			TaxID: "123.456.789-00",
			Email: "cliente@example.com",
		},
		ScopeLines:  []string{"Consultoria — Diagnostico", "Treinamento — Workshop"},
		GeneratedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderContract_Builtin(t *testing.T) {
	doc := RenderContract(renderInput())
	assert.Equal(t, "builtin", doc.TemplateID)

	text := string(doc.Bytes())
	for _, want := range []string{
		"SERVICE AGREEMENT",
		"CONTRACTOR",
		"Acme Consultoria",
		"CLIENT",
		"Cliente Exemplo",
		"SCOPE OF WORK",
		"  - Consultoria — Diagnostico",
		"Generated at 2026-08-30 12:00 UTC.",
	} {
		assert.Contains(t, text, want)
	}
}

func TestRenderContract_Deterministic(t *testing.T) {
	a := RenderContract(renderInput())
	b := RenderContract(renderInput())
	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.Equal(t, a.ContentHash(), b.ContentHash())
	assert.Len(t, a.ContentHash(), 64)

	in := renderInput()
	in.ScopeLines = append(in.ScopeLines, "Extra — Entregavel")
	c := RenderContract(in)
	assert.NotEqual(t, a.ContentHash(), c.ContentHash())
}

func TestRenderContract_RowWidth(t *testing.T) {
	in := renderInput()
	in.ScopeLines = []string{strings.Repeat("palavra ", 40) + "final"}
	doc := RenderContract(in)

	for _, p := range doc.Pages {
		for _, line := range p.Lines {
			assert.LessOrEqual(t, len([]rune(line)), pageWidth, "line %q", line)
		}
	}

	// Wrapped bullet continuations align under the bullet text.
	text := string(doc.Bytes())
	assert.Contains(t, text, "\n    palavra")
}

func TestRenderContract_Pagination(t *testing.T) {
	in := renderInput()
	in.ScopeLines = nil
	for i := 0; i < maxScopeLines; i++ {
		in.ScopeLines = append(in.ScopeLines, fmt.Sprintf("Oferta %02d — Entregavel %02d", i, i))
	}
	doc := RenderContract(in)

	require.Greater(t, len(doc.Pages), 1)
	for _, p := range doc.Pages {
		assert.LessOrEqual(t, len(p.Lines), pageHeight)
	}
	assert.Contains(t, string(doc.Bytes()), "\f")
}

func TestRenderContract_ScopeTruncation(t *testing.T) {
	in := renderInput()
	in.ScopeLines = nil
	for i := 0; i < maxScopeLines+20; i++ {
		in.ScopeLines = append(in.ScopeLines, fmt.Sprintf("Linha %03d", i))
	}
	doc := RenderContract(in)

	text := string(doc.Bytes())
	assert.Contains(t, text, fmt.Sprintf("Linha %03d", maxScopeLines-1))
	assert.NotContains(t, text, fmt.Sprintf("Linha %03d", maxScopeLines))
}

func TestRenderContract_Templated(t *testing.T) {
	in := renderInput()
	in.Tenant.ContractTemplateID = "tpl-1"
	in.Tenant.ContractTemplate = "# ACORDO\n{{tenant_name}} e {{party_name}}.\n\n{{scope_items}}\nEmitido em {{generated_at}}."

	doc := RenderContract(in)
	assert.Equal(t, "tpl-1", doc.TemplateID)

	text := string(doc.Bytes())
	assert.Contains(t, text, "ACORDO\n======")
	assert.Contains(t, text, "Acme Consultoria e Cliente Exemplo.")
	assert.Contains(t, text, "- Consultoria — Diagnostico")
	assert.Contains(t, text, "Emitido em 2026-08-30 12:00 UTC.")
	assert.NotContains(t, text, "{{")
}

func TestRenderContract_EmptyScope(t *testing.T) {
	in := renderInput()
	in.ScopeLines = nil
	doc := RenderContract(in)

	require.Len(t, doc.Pages, 1)
	assert.Contains(t, string(doc.Bytes()), "SCOPE OF WORK")
}
