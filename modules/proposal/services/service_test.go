package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seivahq/painel/modules/proposal/domain/ports"
	"github.com/seivahq/painel/modules/proposal/domain/types"
	"github.com/seivahq/painel/modules/proposal/infrastructure/persistence"
)

const (
	tenantID   = "11111111-1111-1111-1111-111111111111"
	proposalID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	partyID    = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

type fakeGateway struct {
	createErr error
	linkErr   error
	status    string
	statusErr error
	creates   int
	lastFile  []byte
}

func (g *fakeGateway) CreateDocument(_ context.Context, name, signerName, signerEmail string, file []byte) (ports.CreatedDocument, error) {
	if g.createErr != nil {
		return ports.CreatedDocument{}, g.createErr
	}
	g.creates++
	g.lastFile = file
	return ports.CreatedDocument{DocumentID: "doc-1", SignerID: "signer-1"}, nil
}

func (g *fakeGateway) CreateSigningLink(context.Context, string) (string, error) {
	if g.linkErr != nil {
		return "", g.linkErr
	}
	return "https://sign.example/abc", nil
}

func (g *fakeGateway) GetStatus(context.Context, string) (string, error) {
	return g.status, g.statusErr
}

type fixture struct {
	svc       ProposalService
	proposals *persistence.ProposalMemoryStore
	timeline  *persistence.TimelineMemoryStore
	gateway   *fakeGateway
	tenant    types.TenantProfile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	proposals := persistence.NewProposalMemoryStore()
	proposals.Put(types.Proposal{
		ID:          proposalID,
		TenantID:    tenantID,
		PartyID:     partyID,
		Token:       "tok",
		SelectedIDs: []string{"c1"},
		Status:      types.StatusDraft,
		CreatedAt:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	})

	parties := persistence.NewPartyMemoryStore()
	parties.Put(tenantID, types.Party{
		ID:    partyID,
		Name:  "Cliente Exemplo",
		Email: "cliente@example.com",
	})

	catalog := persistence.NewCatalogMemoryStore()
	catalog.PutCommitment(tenantID, types.Commitment{
		ID:   "c1",
		Name: "Onboarding",
		Items: []types.CommitmentItem{
			{ID: "i1", CommitmentID: "c1", OfferingID: "o1", Quantity: 1},
		},
	})
	catalog.PutOffering(tenantID, types.Offering{ID: "o1", Name: "Consultoria"})
	catalog.PutTemplate(tenantID, types.DeliverableTemplate{ID: "d1", OfferingID: "o1", Name: "Diagnostico"})

	timeline := persistence.NewTimelineMemoryStore()
	gw := &fakeGateway{}

	return &fixture{
		svc: ProposalService{
			Proposals: proposals,
			Parties:   parties,
			Timeline:  timeline,
			Gateway:   gw,
			Scope:     ScopeResolver{Catalog: catalog},
			NowUTC:    func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) },
		},
		proposals: proposals,
		timeline:  timeline,
		gateway:   gw,
		tenant:    types.TenantProfile{ID: tenantID, Slug: "acme", Name: "Acme Consultoria"},
	}
}

func (f *fixture) proposal(t *testing.T) types.Proposal {
	t.Helper()
	p, ok := f.proposals.Get(tenantID, proposalID)
	require.True(t, ok)
	return p
}

func (f *fixture) eventsOfType(eventType string) int {
	n := 0
	for _, e := range f.timeline.Events() {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func TestApprove_StampsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{IP: "1.2.3.4", UserAgent: "ua"})
	require.NoError(t, err)
	assert.False(t, res.Already)

	p := f.proposal(t)
	assert.Equal(t, types.StatusApproved, p.Status)
	require.NotNil(t, p.ApprovedAt)
	first := *p.ApprovedAt

	// Second approval reports the original timestamp and writes no
	// second audit event.
	f.svc.NowUTC = func() time.Time { return first.Add(time.Hour) }
	res, err = f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{IP: "9.9.9.9"})
	require.NoError(t, err)
	assert.True(t, res.Already)
	assert.Equal(t, first, res.ApprovedAt)
	assert.Equal(t, 1, f.eventsOfType(types.EventProposalApproved))
}

func TestSign_RequiresApproval(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Sign(context.Background(), f.tenant, f.proposal(t))
	require.ErrorIs(t, err, ErrScopeNotApproved)
	assert.Zero(t, f.gateway.creates)
}

func TestSign_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{})
	require.NoError(t, err)

	res, err := f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.NoError(t, err)
	assert.False(t, res.Already)
	assert.Equal(t, "https://sign.example/abc", res.SigningLink)
	assert.Equal(t, "doc-1", res.DocumentID)

	p := f.proposal(t)
	assert.Equal(t, types.StatusContractSent, p.Status)
	assert.Equal(t, "pending", p.Signing.ExternalStatus)
	assert.NotEmpty(t, p.Signing.ContentHash)
	assert.Equal(t, 1, f.eventsOfType(types.EventContractSent))

	assert.Contains(t, string(f.gateway.lastFile), "SCOPE OF WORK")
	assert.Contains(t, string(f.gateway.lastFile), "Consultoria — Diagnostico")
}

func TestSign_RepeatReturnsStoredLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{})
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.NoError(t, err)

	res, err := f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.NoError(t, err)
	assert.True(t, res.Already)
	assert.Equal(t, "https://sign.example/abc", res.SigningLink)
	assert.Equal(t, 1, f.gateway.creates)
	assert.Equal(t, 1, f.eventsOfType(types.EventContractSent))
}

func TestSign_MissingEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parties := persistence.NewPartyMemoryStore()
	parties.Put(tenantID, types.Party{ID: partyID, Name: "Sem Email"})
	f.svc.Parties = parties

	_, err := f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{})
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.ErrorIs(t, err, ErrMissingCustomerEmail)
	assert.Zero(t, f.gateway.creates)
}

func TestSign_PartyGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Parties = persistence.NewPartyMemoryStore()

	_, err := f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{})
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.ErrorIs(t, err, ErrPartyNotFound)
}

func TestSign_GatewayFailureLeavesApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{})
	require.NoError(t, err)

	f.gateway.createErr = errors.New("provider down")
	_, err = f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.Error(t, err)

	p := f.proposal(t)
	assert.Equal(t, types.StatusApproved, p.Status)
	assert.Empty(t, p.Signing.SigningLink)
	assert.Equal(t, 0, f.eventsOfType(types.EventContractSent))

	// Retry succeeds once the provider is back.
	f.gateway.createErr = nil
	res, err := f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.NoError(t, err)
	assert.False(t, res.Already)
}

func TestReconcile_NoDocumentIsNoop(t *testing.T) {
	f := newFixture(t)

	p := f.svc.Reconcile(context.Background(), f.tenant, f.proposal(t))
	assert.Equal(t, types.StatusDraft, p.Status)
	assert.Zero(t, f.eventsOfType(types.EventContractSigned))
}

func TestReconcile_SwallowsProviderFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{})
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.NoError(t, err)

	f.gateway.statusErr = errors.New("timeout")
	p := f.svc.Reconcile(ctx, f.tenant, f.proposal(t))
	assert.Equal(t, types.StatusContractSent, p.Status)
	assert.Equal(t, "pending", p.Signing.ExternalStatus)

	f.gateway.statusErr = nil
	f.gateway.status = ""
	p = f.svc.Reconcile(ctx, f.tenant, f.proposal(t))
	assert.Equal(t, types.StatusContractSent, p.Status)
}

func TestReconcile_NonTerminalStatusUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{})
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.NoError(t, err)

	f.gateway.status = "viewed"
	p := f.svc.Reconcile(ctx, f.tenant, f.proposal(t))
	assert.Equal(t, types.StatusContractSent, p.Status)
	assert.Equal(t, "viewed", p.Signing.ExternalStatus)
	require.NotNil(t, p.Signing.CheckedAt)
	assert.Zero(t, f.eventsOfType(types.EventContractSigned))
}

func TestReconcile_SignedIsTerminalAndDeduped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, f.tenant, f.proposal(t), types.ApprovalMeta{})
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, f.tenant, f.proposal(t))
	require.NoError(t, err)

	f.gateway.status = "signed"
	p := f.svc.Reconcile(ctx, f.tenant, f.proposal(t))
	assert.Equal(t, types.StatusSigned, p.Status)
	assert.Equal(t, 1, f.eventsOfType(types.EventContractSigned))

	// Terminal proposals never poll again.
	f.gateway.statusErr = errors.New("must not be called")
	stored := f.proposal(t)
	p = f.svc.Reconcile(ctx, f.tenant, stored)
	assert.Equal(t, types.StatusSigned, p.Status)
	assert.Equal(t, 1, f.eventsOfType(types.EventContractSigned))
}
