package types

import "time"

type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusApproved     Status = "APPROVED"
	StatusContractSent Status = "CONTRACT_SENT"
	StatusSigned       Status = "SIGNED"
)

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool { return s == StatusSigned }

type ApprovalMeta struct {
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	At        time.Time `json:"at"`
}

// SigningRecord is written once by the sign operation. Only
// ExternalStatus and CheckedAt are refreshed afterwards, by
// reconciliation.
type SigningRecord struct {
	DocumentID     string     `json:"document_id"`
	SignerID       string     `json:"signer_id"`
	SigningLink    string     `json:"signing_link"`
	ExternalStatus string     `json:"external_status"`
	ContentHash    string     `json:"content_hash"`
	TemplateID     string     `json:"template_id"`
	CheckedAt      *time.Time `json:"checked_at"`
}

// Proposal ties a party and a frozen ordered set of commitment ids to
// a lifecycle state. The token is the sole bearer of access to the
// public endpoint. SelectedIDs never changes after creation; only the
// catalog content it dereferences may drift.
type Proposal struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenant_id"`
	PartyID     string        `json:"party_id"`
	Token       string        `json:"-"`
	SelectedIDs []string      `json:"selected_ids"`
	Status      Status        `json:"status"`
	ApprovedAt  *time.Time    `json:"approved_at"`
	Approval    *ApprovalMeta `json:"approval_meta,omitempty"`
	Signing     SigningRecord `json:"signing_record"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Party is the counter-party entity record, resolved from the shared
// entity catalog and read-only from this module's perspective.
type Party struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}
