package types

import "time"

const (
	EventProposalApproved = "proposal_approved"
	EventContractSent     = "contract_sent"
	EventContractSigned   = "contract_signed"
)

// TimelineEvent is an append-only audit record. For a given
// (tenant_id, event_type, proposal_id) at most one event exists.
type TimelineEvent struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	EventType  string         `json:"event_type"`
	Message    string         `json:"message"`
	OccurredAt time.Time      `json:"occurred_at"`
	Meta       map[string]any `json:"meta"`
}
