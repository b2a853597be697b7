package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/seivahq/painel/modules/proposal/domain/types"
)

// Fixed-width page geometry. The measure oracle is rune count, so the
// printable width is in columns and the height in text rows.
const (
	pageWidth      = 90
	pageHeight     = 54
	maxScopeLines  = 60
	builtinTplID   = "builtin"
	scopeBulletTag = "  - "
)

type Page struct {
	Lines []string
}

type Document struct {
	TemplateID string
	Pages      []Page
}

// Bytes serializes the document: rows joined by newlines, pages
// separated by a form feed. This is the exact byte stream uploaded to
// the signing provider and the input of ContentHash.
func (d Document) Bytes() []byte {
	var b strings.Builder
	for i, p := range d.Pages {
		if i > 0 {
			b.WriteString("\f")
		}
		for _, ln := range p.Lines {
			b.WriteString(ln)
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

// ContentHash is the durable record of exactly what was sent for
// signature; the provider does not return the bytes it received.
func (d Document) ContentHash() string {
	sum := sha256.Sum256(d.Bytes())
	return hex.EncodeToString(sum[:])
}

type ContractInput struct {
	Tenant      types.TenantProfile
	Party       types.Party
	ScopeLines  []string
	GeneratedAt time.Time
}

// RenderContract lays out the contract document. A tenant with a
// configured template gets templated mode; otherwise the built-in
// fixed layout is used. Rendering is a pure function of its input.
func RenderContract(in ContractInput) Document {
	l := newLayout(pageWidth, pageHeight)
	templateID := builtinTplID
	if strings.TrimSpace(in.Tenant.ContractTemplate) != "" {
		templateID = in.Tenant.ContractTemplateID
		renderTemplated(l, in)
	} else {
		renderBuiltin(l, in)
	}
	return Document{TemplateID: templateID, Pages: l.finish()}
}

func renderTemplated(l *layout, in ContractInput) {
	var bullets strings.Builder
	for i, line := range in.ScopeLines {
		if i > 0 {
			bullets.WriteString("\n")
		}
		bullets.WriteString("- " + line)
	}
	body := strings.NewReplacer(
		"{{tenant_name}}", in.Tenant.Name,
		"{{party_name}}", in.Party.Name,
		"{{scope_items}}", bullets.String(),
		"{{generated_at}}", in.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"),
	).Replace(in.Tenant.ContractTemplate)

	lines := strings.SplitAfter(body, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for _, line := range lines {
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "# "):
			l.heading(strings.TrimPrefix(line, "# "))
		case strings.TrimSpace(line) == "":
			l.blank()
		default:
			l.paragraph(line)
		}
	}
}

func renderBuiltin(l *layout, in ContractInput) {
	l.heading("SERVICE AGREEMENT")
	l.blank()

	l.heading("CONTRACTOR")
	l.paragraph(in.Tenant.Name)
	if in.Tenant.TaxID != "" {
		l.paragraph("Tax ID: " + in.Tenant.TaxID)
	}
	if in.Tenant.Address != "" {
		l.paragraph(in.Tenant.Address)
	}
	l.blank()

	l.heading("CLIENT")
	l.paragraph(in.Party.Name)
	if in.Party.TaxID != "" {
		l.paragraph("Tax ID: " + in.Party.TaxID)
	}
	if in.Party.Email != "" {
		l.paragraph("Email: " + in.Party.Email)
	}
	if in.Party.Phone != "" {
		l.paragraph("Phone: " + in.Party.Phone)
	}
	if in.Party.Address != "" {
		l.paragraph(in.Party.Address)
	}
	l.blank()

	l.heading("SCOPE OF WORK")
	lines := in.ScopeLines
	if len(lines) > maxScopeLines {
		lines = lines[:maxScopeLines]
	}
	for _, line := range lines {
		l.paragraph(scopeBulletTag + line)
	}
	l.blank()
	l.paragraph("Generated at " + in.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC") + ".")
}

// layout is the greedy word-wrap pass: words accumulate on the current
// row while the measured width fits; overflow flushes the row. A row
// that would land past the bottom margin opens a new page instead.
// Rows are never split mid-word across pages.
type layout struct {
	width  int
	height int
	pages  []Page
	cur    []string
}

func newLayout(width, height int) *layout {
	return &layout{width: width, height: height}
}

func (l *layout) row(s string) {
	if len(l.cur) >= l.height {
		l.pages = append(l.pages, Page{Lines: l.cur})
		l.cur = nil
	}
	l.cur = append(l.cur, s)
}

func (l *layout) blank() {
	l.row("")
}

// heading renders at display size: the text row plus an underline row.
// The pair is kept on one page.
func (l *layout) heading(text string) {
	text = strings.TrimSpace(text)
	if len(l.cur)+2 > l.height {
		l.pages = append(l.pages, Page{Lines: l.cur})
		l.cur = nil
	}
	upper := strings.ToUpper(text)
	l.row(upper)
	l.row(strings.Repeat("=", min(utf8.RuneCountInString(upper), l.width)))
}

func (l *layout) paragraph(text string) {
	prefix, cont := "", ""
	if strings.HasPrefix(text, scopeBulletTag) {
		prefix = scopeBulletTag
		cont = strings.Repeat(" ", len(scopeBulletTag))
		text = strings.TrimPrefix(text, scopeBulletTag)
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		l.blank()
		return
	}
	// A single word wider than the page still gets its own row.
	line := prefix + words[0]
	for _, w := range words[1:] {
		if l.widthOf(line+" "+w) <= l.width {
			line += " " + w
			continue
		}
		l.row(line)
		line = cont + w
	}
	l.row(line)
}

func (l *layout) widthOf(s string) int {
	return utf8.RuneCountInString(s)
}

func (l *layout) finish() []Page {
	if len(l.cur) > 0 || len(l.pages) == 0 {
		l.pages = append(l.pages, Page{Lines: l.cur})
		l.cur = nil
	}
	return l.pages
}
