package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/seivahq/painel/modules/proposal/domain/ports"
	"github.com/seivahq/painel/modules/proposal/domain/types"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var errProposalGone = errors.New("proposal_not_found")

type ProposalPGStore struct {
	pool pgBeginner
}

func NewProposalPGStore(pool pgBeginner) ports.ProposalStore {
	return &ProposalPGStore{pool: pool}
}

const proposalColumns = `
  id::text,
  tenant_id::text,
  party_id::text,
  token,
  selected_ids,
  status,
  approved_at,
  approval_ip,
  approval_user_agent,
  COALESCE(signing_document_id, ''),
  COALESCE(signing_signer_id, ''),
  COALESCE(signing_link, ''),
  COALESCE(signing_external_status, ''),
  COALESCE(content_hash, ''),
  COALESCE(template_id, ''),
  signing_checked_at,
  created_at`

func scanProposal(row pgx.Row) (types.Proposal, error) {
	var p types.Proposal
	var approvalIP, approvalUA *string
	err := row.Scan(
		&p.ID, &p.TenantID, &p.PartyID, &p.Token, &p.SelectedIDs, &p.Status,
		&p.ApprovedAt, &approvalIP, &approvalUA,
		&p.Signing.DocumentID, &p.Signing.SignerID, &p.Signing.SigningLink,
		&p.Signing.ExternalStatus, &p.Signing.ContentHash, &p.Signing.TemplateID,
		&p.Signing.CheckedAt, &p.CreatedAt,
	)
	if err != nil {
		return types.Proposal{}, err
	}
	if p.ApprovedAt != nil {
		p.Approval = &types.ApprovalMeta{At: *p.ApprovedAt}
		if approvalIP != nil {
			p.Approval.IP = *approvalIP
		}
		if approvalUA != nil {
			p.Approval.UserAgent = *approvalUA
		}
	}
	return p, nil
}

func (s *ProposalPGStore) GetByToken(ctx context.Context, tenantID string, token string) (types.Proposal, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Proposal{}, false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return types.Proposal{}, false, err
	}

	p, err := scanProposal(tx.QueryRow(ctx, `
	SELECT `+proposalColumns+`
	FROM proposal.proposals
	WHERE tenant_id = $1::uuid AND token = $2 AND deleted_at IS NULL
	`, tenantID, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Proposal{}, false, nil
		}
		return types.Proposal{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Proposal{}, false, err
	}
	return p, true, nil
}

func (s *ProposalPGStore) MarkApproved(ctx context.Context, tenantID string, proposalID string, meta types.ApprovalMeta) (time.Time, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return time.Time{}, false, err
	}

	// Conditional update: approval is written once, never rewritten.
	var approvedAt time.Time
	err = tx.QueryRow(ctx, `
	UPDATE proposal.proposals
	SET status = $3, approved_at = $4, approval_ip = $5, approval_user_agent = $6
	WHERE tenant_id = $1::uuid AND id = $2::uuid AND approved_at IS NULL
	RETURNING approved_at
	`, tenantID, proposalID, types.StatusApproved, meta.At, meta.IP, meta.UserAgent).Scan(&approvedAt)
	already := false
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, err
		}
		var existing *time.Time
		err = tx.QueryRow(ctx, `
	SELECT approved_at FROM proposal.proposals
	WHERE tenant_id = $1::uuid AND id = $2::uuid AND deleted_at IS NULL
	`, tenantID, proposalID).Scan(&existing)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return time.Time{}, false, errProposalGone
			}
			return time.Time{}, false, err
		}
		if existing == nil {
			return time.Time{}, false, errProposalGone
		}
		approvedAt = *existing
		already = true
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, false, err
	}
	return approvedAt, already, nil
}

func (s *ProposalPGStore) AttachSigningRecord(ctx context.Context, tenantID string, proposalID string, rec types.SigningRecord) (types.SigningRecord, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.SigningRecord{}, false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return types.SigningRecord{}, false, err
	}

	// The signing_link IS NULL filter makes the external side effect
	// attach at most once even under a concurrent double sign.
	tag, err := tx.Exec(ctx, `
	UPDATE proposal.proposals
	SET signing_document_id = $3,
	    signing_signer_id = $4,
	    signing_link = $5,
	    signing_external_status = $6,
	    content_hash = $7,
	    template_id = $8,
	    status = $9
	WHERE tenant_id = $1::uuid AND id = $2::uuid AND signing_link IS NULL
	`, tenantID, proposalID, rec.DocumentID, rec.SignerID, rec.SigningLink,
		rec.ExternalStatus, rec.ContentHash, rec.TemplateID, types.StatusContractSent)
	if err != nil {
		return types.SigningRecord{}, false, err
	}

	if tag.RowsAffected() == 0 {
		var existing types.SigningRecord
		err = tx.QueryRow(ctx, `
	SELECT
	  COALESCE(signing_document_id, ''),
	  COALESCE(signing_signer_id, ''),
	  COALESCE(signing_link, ''),
	  COALESCE(signing_external_status, ''),
	  COALESCE(content_hash, ''),
	  COALESCE(template_id, ''),
	  signing_checked_at
	FROM proposal.proposals
	WHERE tenant_id = $1::uuid AND id = $2::uuid AND deleted_at IS NULL
	`, tenantID, proposalID).Scan(
			&existing.DocumentID, &existing.SignerID, &existing.SigningLink,
			&existing.ExternalStatus, &existing.ContentHash, &existing.TemplateID,
			&existing.CheckedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return types.SigningRecord{}, false, errProposalGone
			}
			return types.SigningRecord{}, false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return types.SigningRecord{}, false, err
		}
		return existing, true, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return types.SigningRecord{}, false, err
	}
	return rec, false, nil
}

func (s *ProposalPGStore) RefreshExternalStatus(ctx context.Context, tenantID string, proposalID string, externalStatus string, signed bool, checkedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
	UPDATE proposal.proposals
	SET signing_external_status = $3,
	    signing_checked_at = $4,
	    status = CASE WHEN $5 THEN $6 ELSE status END
	WHERE tenant_id = $1::uuid AND id = $2::uuid
	`, tenantID, proposalID, externalStatus, checkedAt, signed, types.StatusSigned); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
