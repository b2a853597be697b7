package persistence

import (
	"context"

	"github.com/seivahq/painel/modules/proposal/domain/ports"
	"github.com/seivahq/painel/modules/proposal/domain/types"
)

type CatalogPGStore struct {
	pool pgBeginner
}

func NewCatalogPGStore(pool pgBeginner) ports.CatalogStore {
	return &CatalogPGStore{pool: pool}
}

// ListCommitments preserves the order of ids; soft-deleted rows never
// resolve and missing ids are simply absent from the result.
func (s *CatalogPGStore) ListCommitments(ctx context.Context, tenantID string, ids []string) ([]types.Commitment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
	SELECT c.id::text, c.name
	FROM catalog.commitments c
	WHERE c.tenant_id = $1::uuid AND c.id = ANY($2::uuid[]) AND c.deleted_at IS NULL
	ORDER BY array_position($2::uuid[], c.id)
	`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]types.Commitment, 0, len(ids))
	index := make(map[string]int)
	for rows.Next() {
		var c types.Commitment
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			rows.Close()
			return nil, err
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) > 0 {
		itemRows, err := tx.Query(ctx, `
	SELECT i.id::text, i.commitment_id::text, i.offering_id::text, i.quantity
	FROM catalog.commitment_items i
	WHERE i.tenant_id = $1::uuid AND i.commitment_id = ANY($2::uuid[]) AND i.deleted_at IS NULL
	ORDER BY array_position($2::uuid[], i.commitment_id), i.position, i.id::text
	`, tenantID, commitmentIDs(out))
		if err != nil {
			return nil, err
		}
		for itemRows.Next() {
			var it types.CommitmentItem
			if err := itemRows.Scan(&it.ID, &it.CommitmentID, &it.OfferingID, &it.Quantity); err != nil {
				itemRows.Close()
				return nil, err
			}
			if i, ok := index[it.CommitmentID]; ok {
				out[i].Items = append(out[i].Items, it)
			}
		}
		itemRows.Close()
		if err := itemRows.Err(); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func commitmentIDs(cs []types.Commitment) []string {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids
}

func (s *CatalogPGStore) ListOfferings(ctx context.Context, tenantID string, ids []string) ([]types.Offering, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
	SELECT o.id::text, o.name
	FROM catalog.offerings o
	WHERE o.tenant_id = $1::uuid AND o.id = ANY($2::uuid[]) AND o.deleted_at IS NULL
	ORDER BY array_position($2::uuid[], o.id)
	`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.Offering, 0, len(ids))
	for rows.Next() {
		var o types.Offering
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CatalogPGStore) ListTemplatesByOffering(ctx context.Context, tenantID string, offeringIDs []string) ([]types.DeliverableTemplate, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
	SELECT t.id::text, t.offering_id::text, t.name
	FROM catalog.deliverable_templates t
	WHERE t.tenant_id = $1::uuid AND t.offering_id = ANY($2::uuid[]) AND t.deleted_at IS NULL
	ORDER BY array_position($2::uuid[], t.offering_id), t.position, t.id::text
	`, tenantID, offeringIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.DeliverableTemplate, 0)
	for rows.Next() {
		var t types.DeliverableTemplate
		if err := rows.Scan(&t.ID, &t.OfferingID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
