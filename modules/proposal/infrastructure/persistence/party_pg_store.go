package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/seivahq/painel/modules/proposal/domain/ports"
	"github.com/seivahq/painel/modules/proposal/domain/types"
)

type PartyPGStore struct {
	pool pgBeginner
}

func NewPartyPGStore(pool pgBeginner) ports.PartyStore {
	return &PartyPGStore{pool: pool}
}

func (s *PartyPGStore) GetParty(ctx context.Context, tenantID string, partyID string) (types.Party, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Party{}, false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return types.Party{}, false, err
	}

	var p types.Party
	err = tx.QueryRow(ctx, `
	SELECT
	  p.id::text,
	  p.name,
	  COALESCE(p.tax_id, ''),
	  COALESCE(p.email, ''),
	  COALESCE(p.phone, ''),
	  COALESCE(p.address, '')
	FROM crm.parties p
	WHERE p.tenant_id = $1::uuid AND p.id = $2::uuid AND p.deleted_at IS NULL
	`, tenantID, partyID).Scan(&p.ID, &p.Name, &p.TaxID, &p.Email, &p.Phone, &p.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Party{}, false, nil
		}
		return types.Party{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Party{}, false, err
	}
	return p, true, nil
}
