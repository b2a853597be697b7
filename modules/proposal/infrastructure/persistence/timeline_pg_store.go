package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/seivahq/painel/modules/proposal/domain/ports"
)

var timelineEventNamespace = uuid.Must(uuid.Parse("9b1c6a0e-5a2f-4f6f-9d3b-ef65b0f6a51c"))

// timelineEventID is the dedup key: one event per
// (tenant_id, event_type, proposal_id), enforced by the primary key
// instead of an in-process check.
func timelineEventID(tenantID string, eventType string, proposalID string) string {
	name := fmt.Sprintf("proposal.timeline_event:%s:%s:%s", tenantID, eventType, proposalID)
	return uuid.NewSHA1(timelineEventNamespace, []byte(name)).String()
}

type TimelinePGStore struct {
	pool pgBeginner
}

func NewTimelinePGStore(pool pgBeginner) ports.TimelineStore {
	return &TimelinePGStore{pool: pool}
}

func (s *TimelinePGStore) RecordOnce(ctx context.Context, tenantID string, eventType string, proposalID string, message string, occurredAt time.Time, meta map[string]any) (bool, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["proposal_id"] = proposalID
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, err
	}

	eventID := timelineEventID(tenantID, eventType, proposalID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx, `
	INSERT INTO timeline.events (id, tenant_id, event_type, message, occurred_at, meta)
	VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6::jsonb)
	ON CONFLICT (id) DO NOTHING
	`, eventID, tenantID, eventType, message, occurredAt, metaJSON)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
