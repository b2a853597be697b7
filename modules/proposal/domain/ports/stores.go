package ports

import (
	"context"
	"time"

	"github.com/seivahq/painel/modules/proposal/domain/types"
)

type ProposalStore interface {
	// GetByToken resolves a proposal by its capability token, scoped to
	// one tenant. Soft-deleted proposals never resolve.
	GetByToken(ctx context.Context, tenantID string, token string) (types.Proposal, bool, error)

	// MarkApproved stamps approved_at and the approval metadata with a
	// conditional update (approved_at IS NULL). When the proposal was
	// already approved the stored approved_at is returned with
	// already=true and nothing is written.
	MarkApproved(ctx context.Context, tenantID string, proposalID string, meta types.ApprovalMeta) (approvedAt time.Time, already bool, err error)

	// AttachSigningRecord persists rec and moves the proposal to
	// CONTRACT_SENT, but only if no signing link is present yet
	// (signing_link IS NULL). If a concurrent sign won the race the
	// persisted record is returned with already=true.
	AttachSigningRecord(ctx context.Context, tenantID string, proposalID string, rec types.SigningRecord) (types.SigningRecord, bool, error)

	// RefreshExternalStatus updates the reconciliation fields and, when
	// signed is true, advances the status to SIGNED.
	RefreshExternalStatus(ctx context.Context, tenantID string, proposalID string, externalStatus string, signed bool, checkedAt time.Time) error
}

type PartyStore interface {
	GetParty(ctx context.Context, tenantID string, partyID string) (types.Party, bool, error)
}

type CatalogStore interface {
	// ListCommitments returns the commitments matching ids, each with
	// its items, preserving the order of ids. Missing or soft-deleted
	// rows are omitted, never an error.
	ListCommitments(ctx context.Context, tenantID string, ids []string) ([]types.Commitment, error)
	ListOfferings(ctx context.Context, tenantID string, ids []string) ([]types.Offering, error)
	ListTemplatesByOffering(ctx context.Context, tenantID string, offeringIDs []string) ([]types.DeliverableTemplate, error)
}

type TimelineStore interface {
	// RecordOnce inserts a timeline event unless one already exists for
	// the same (tenant_id, event_type, proposal_id). Reports whether a
	// row was actually written.
	RecordOnce(ctx context.Context, tenantID string, eventType string, proposalID string, message string, occurredAt time.Time, meta map[string]any) (bool, error)
}
