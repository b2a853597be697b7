package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/seivahq/painel/modules/proposal/domain/types"
)

// In-memory store implementations, used by tests and by handler wiring
// when no database pool is available. They honor the same conditional
// write semantics as the pg stores.

type ProposalMemoryStore struct {
	mu        sync.Mutex
	proposals map[string]map[string]types.Proposal
}

func NewProposalMemoryStore() *ProposalMemoryStore {
	return &ProposalMemoryStore{proposals: make(map[string]map[string]types.Proposal)}
}

func (s *ProposalMemoryStore) Put(p types.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proposals[p.TenantID] == nil {
		s.proposals[p.TenantID] = make(map[string]types.Proposal)
	}
	s.proposals[p.TenantID][p.ID] = p
}

func (s *ProposalMemoryStore) Get(tenantID, proposalID string) (types.Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[tenantID][proposalID]
	return p, ok
}

func (s *ProposalMemoryStore) GetByToken(_ context.Context, tenantID string, token string) (types.Proposal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		return types.Proposal{}, false, nil
	}
	for _, p := range s.proposals[tenantID] {
		if p.Token == token {
			return p, true, nil
		}
	}
	return types.Proposal{}, false, nil
}

func (s *ProposalMemoryStore) MarkApproved(_ context.Context, tenantID string, proposalID string, meta types.ApprovalMeta) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[tenantID][proposalID]
	if !ok {
		return time.Time{}, false, errProposalGone
	}
	if p.ApprovedAt != nil {
		return *p.ApprovedAt, true, nil
	}
	at := meta.At
	p.Status = types.StatusApproved
	p.ApprovedAt = &at
	p.Approval = &meta
	s.proposals[tenantID][proposalID] = p
	return at, false, nil
}

func (s *ProposalMemoryStore) AttachSigningRecord(_ context.Context, tenantID string, proposalID string, rec types.SigningRecord) (types.SigningRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[tenantID][proposalID]
	if !ok {
		return types.SigningRecord{}, false, errProposalGone
	}
	if p.Signing.SigningLink != "" {
		return p.Signing, true, nil
	}
	p.Signing = rec
	p.Status = types.StatusContractSent
	s.proposals[tenantID][proposalID] = p
	return rec, false, nil
}

func (s *ProposalMemoryStore) RefreshExternalStatus(_ context.Context, tenantID string, proposalID string, externalStatus string, signed bool, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[tenantID][proposalID]
	if !ok {
		return errProposalGone
	}
	p.Signing.ExternalStatus = externalStatus
	p.Signing.CheckedAt = &checkedAt
	if signed {
		p.Status = types.StatusSigned
	}
	s.proposals[tenantID][proposalID] = p
	return nil
}

type PartyMemoryStore struct {
	mu      sync.Mutex
	parties map[string]map[string]types.Party
}

func NewPartyMemoryStore() *PartyMemoryStore {
	return &PartyMemoryStore{parties: make(map[string]map[string]types.Party)}
}

func (s *PartyMemoryStore) Put(tenantID string, p types.Party) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parties[tenantID] == nil {
		s.parties[tenantID] = make(map[string]types.Party)
	}
	s.parties[tenantID][p.ID] = p
}

func (s *PartyMemoryStore) GetParty(_ context.Context, tenantID string, partyID string) (types.Party, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[tenantID][partyID]
	return p, ok, nil
}

type CatalogMemoryStore struct {
	mu          sync.Mutex
	commitments map[string][]types.Commitment
	offerings   map[string][]types.Offering
	templates   map[string][]types.DeliverableTemplate
}

func NewCatalogMemoryStore() *CatalogMemoryStore {
	return &CatalogMemoryStore{
		commitments: make(map[string][]types.Commitment),
		offerings:   make(map[string][]types.Offering),
		templates:   make(map[string][]types.DeliverableTemplate),
	}
}

func (s *CatalogMemoryStore) PutCommitment(tenantID string, c types.Commitment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitments[tenantID] = append(s.commitments[tenantID], c)
}

func (s *CatalogMemoryStore) PutOffering(tenantID string, o types.Offering) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offerings[tenantID] = append(s.offerings[tenantID], o)
}

func (s *CatalogMemoryStore) PutTemplate(tenantID string, t types.DeliverableTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tenantID] = append(s.templates[tenantID], t)
}

func (s *CatalogMemoryStore) ListCommitments(_ context.Context, tenantID string, ids []string) ([]types.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]types.Commitment)
	for _, c := range s.commitments[tenantID] {
		byID[c.ID] = c
	}
	out := make([]types.Commitment, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CatalogMemoryStore) ListOfferings(_ context.Context, tenantID string, ids []string) ([]types.Offering, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]types.Offering)
	for _, o := range s.offerings[tenantID] {
		byID[o.ID] = o
	}
	out := make([]types.Offering, 0, len(ids))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *CatalogMemoryStore) ListTemplatesByOffering(_ context.Context, tenantID string, offeringIDs []string) ([]types.DeliverableTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(offeringIDs))
	for _, id := range offeringIDs {
		want[id] = true
	}
	out := make([]types.DeliverableTemplate, 0)
	for _, t := range s.templates[tenantID] {
		if want[t.OfferingID] {
			out = append(out, t)
		}
	}
	return out, nil
}

type TimelineMemoryStore struct {
	mu     sync.Mutex
	events []types.TimelineEvent
	seen   map[string]bool
}

func NewTimelineMemoryStore() *TimelineMemoryStore {
	return &TimelineMemoryStore{seen: make(map[string]bool)}
}

func (s *TimelineMemoryStore) RecordOnce(_ context.Context, tenantID string, eventType string, proposalID string, message string, occurredAt time.Time, meta map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := timelineEventID(tenantID, eventType, proposalID)
	if s.seen[id] {
		return false, nil
	}
	s.seen[id] = true
	s.events = append(s.events, types.TimelineEvent{
		ID:         id,
		TenantID:   tenantID,
		EventType:  eventType,
		Message:    message,
		OccurredAt: occurredAt,
		Meta:       meta,
	})
	return true, nil
}

func (s *TimelineMemoryStore) Events() []types.TimelineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.TimelineEvent, len(s.events))
	copy(out, s.events)
	return out
}
