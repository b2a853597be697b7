package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seivahq/painel/modules/proposal/domain/ports"
	"github.com/seivahq/painel/modules/proposal/domain/types"
)

// Stable precondition codes, matched by client code.
var (
	ErrScopeNotApproved     = errors.New("scope_not_approved")
	ErrMissingCustomerEmail = errors.New("missing_customer_email")
	ErrPartyNotFound        = errors.New("party_not_found")
)

const externalStatusSigned = "signed"

// ProposalService drives the proposal lifecycle:
// DRAFT -> APPROVED -> CONTRACT_SENT -> SIGNED. Every mutation checks
// persisted state first, so approve and sign are safe to repeat.
type ProposalService struct {
	Proposals ports.ProposalStore
	Parties   ports.PartyStore
	Timeline  ports.TimelineStore
	Gateway   ports.SigningGateway
	Scope     ScopeResolver
	NowUTC    func() time.Time
	Log       *slog.Logger
}

func (s ProposalService) now() time.Time {
	if s.NowUTC != nil {
		return s.NowUTC().UTC()
	}
	return time.Now().UTC()
}

func (s ProposalService) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

type ApproveResult struct {
	ApprovedAt time.Time
	Already    bool
}

// Approve stamps the approval as a fact. Repeat calls succeed and
// report Already instead of erroring; approved_at is never rewritten.
func (s ProposalService) Approve(ctx context.Context, tenant types.TenantProfile, prop types.Proposal, meta types.ApprovalMeta) (ApproveResult, error) {
	if meta.At.IsZero() {
		meta.At = s.now()
	}
	approvedAt, already, err := s.Proposals.MarkApproved(ctx, tenant.ID, prop.ID, meta)
	if err != nil {
		return ApproveResult{}, err
	}
	if already {
		return ApproveResult{ApprovedAt: approvedAt, Already: true}, nil
	}

	if _, err := s.Timeline.RecordOnce(ctx, tenant.ID, types.EventProposalApproved, prop.ID,
		fmt.Sprintf("Proposal %s approved by the client.", prop.ID), meta.At,
		map[string]any{"proposal_id": prop.ID, "ip": meta.IP}); err != nil {
		return ApproveResult{}, err
	}
	s.log().Info("proposal approved", "tenant", tenant.ID, "proposal", prop.ID)
	return ApproveResult{ApprovedAt: approvedAt}, nil
}

type SignResult struct {
	SigningLink string
	DocumentID  string
	Already     bool
}

// Sign creates the signable document with the external provider. The
// persisted signing link is the idempotency guard: if one exists no
// external work happens. Nothing is persisted until both provider
// calls succeed, so a failed sign leaves the proposal in APPROVED and
// is safe to retry from the top.
func (s ProposalService) Sign(ctx context.Context, tenant types.TenantProfile, prop types.Proposal) (SignResult, error) {
	if prop.ApprovedAt == nil {
		return SignResult{}, ErrScopeNotApproved
	}
	if prop.Signing.SigningLink != "" {
		return SignResult{SigningLink: prop.Signing.SigningLink, DocumentID: prop.Signing.DocumentID, Already: true}, nil
	}

	party, ok, err := s.Parties.GetParty(ctx, tenant.ID, prop.PartyID)
	if err != nil {
		return SignResult{}, err
	}
	if !ok {
		return SignResult{}, ErrPartyNotFound
	}
	if party.Email == "" {
		return SignResult{}, ErrMissingCustomerEmail
	}

	scope, err := s.Scope.Resolve(ctx, tenant.ID, prop.SelectedIDs)
	if err != nil {
		return SignResult{}, err
	}

	doc := RenderContract(ContractInput{
		Tenant:      tenant,
		Party:       party,
		ScopeLines:  scope.Lines,
		GeneratedAt: s.now(),
	})

	docName := fmt.Sprintf("%s - %s", tenant.Name, party.Name)
	created, err := s.Gateway.CreateDocument(ctx, docName, party.Name, party.Email, doc.Bytes())
	if err != nil {
		return SignResult{}, err
	}
	link, err := s.Gateway.CreateSigningLink(ctx, created.SignerID)
	if err != nil {
		return SignResult{}, err
	}

	rec := types.SigningRecord{
		DocumentID:     created.DocumentID,
		SignerID:       created.SignerID,
		SigningLink:    link,
		ExternalStatus: "pending",
		ContentHash:    doc.ContentHash(),
		TemplateID:     doc.TemplateID,
	}
	stored, already, err := s.Proposals.AttachSigningRecord(ctx, tenant.ID, prop.ID, rec)
	if err != nil {
		return SignResult{}, err
	}
	if already {
		// A concurrent sign won the conditional update; its record is
		// the one the client must see.
		return SignResult{SigningLink: stored.SigningLink, DocumentID: stored.DocumentID, Already: true}, nil
	}

	if _, err := s.Timeline.RecordOnce(ctx, tenant.ID, types.EventContractSent, prop.ID,
		fmt.Sprintf("Contract for proposal %s sent for signature.", prop.ID), s.now(),
		map[string]any{"proposal_id": prop.ID, "document_id": rec.DocumentID}); err != nil {
		return SignResult{}, err
	}
	s.log().Info("contract sent", "tenant", tenant.ID, "proposal", prop.ID, "document", rec.DocumentID)
	return SignResult{SigningLink: rec.SigningLink, DocumentID: rec.DocumentID}, nil
}

// Reconcile opportunistically pulls the provider status on read. It is
// best-effort: any failure leaves the proposal as loaded and must
// never fail the read it is attached to.
func (s ProposalService) Reconcile(ctx context.Context, tenant types.TenantProfile, prop types.Proposal) types.Proposal {
	if prop.Signing.DocumentID == "" || prop.Status.Terminal() {
		return prop
	}

	status, err := s.Gateway.GetStatus(ctx, prop.Signing.DocumentID)
	if err != nil || status == "" {
		if err != nil {
			s.log().Warn("status poll failed", "tenant", tenant.ID, "proposal", prop.ID, "err", err)
		}
		return prop
	}

	checkedAt := s.now()
	signed := status == externalStatusSigned
	if err := s.Proposals.RefreshExternalStatus(ctx, tenant.ID, prop.ID, status, signed, checkedAt); err != nil {
		s.log().Warn("status refresh failed", "tenant", tenant.ID, "proposal", prop.ID, "err", err)
		return prop
	}
	prop.Signing.ExternalStatus = status
	prop.Signing.CheckedAt = &checkedAt
	if signed {
		prop.Status = types.StatusSigned
		if _, err := s.Timeline.RecordOnce(ctx, tenant.ID, types.EventContractSigned, prop.ID,
			fmt.Sprintf("Contract for proposal %s signed.", prop.ID), checkedAt,
			map[string]any{"proposal_id": prop.ID, "document_id": prop.Signing.DocumentID}); err != nil {
			s.log().Warn("signed event record failed", "tenant", tenant.ID, "proposal", prop.ID, "err", err)
		}
	}
	return prop
}
