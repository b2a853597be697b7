package services

import (
	"context"
	"fmt"

	"github.com/seivahq/painel/modules/proposal/domain/ports"
	"github.com/seivahq/painel/modules/proposal/domain/types"
)

// ScopeResolver dereferences a proposal's frozen commitment ids
// against the live catalog. The same resolution feeds the contract
// renderer and the public GET payload, so the document always matches
// what the counter-party is shown.
type ScopeResolver struct {
	Catalog ports.CatalogStore
}

// Resolve loads the selected commitments, their items, the offerings
// those items reference, and the deliverable templates grouped by
// offering. Rows that no longer resolve (deleted or soft-deleted
// catalog entries) are dropped silently; a partially evaporated scope
// still yields a valid, shorter snapshot.
func (r ScopeResolver) Resolve(ctx context.Context, tenantID string, selectedIDs []string) (types.ScopeSnapshot, error) {
	snap := types.ScopeSnapshot{
		Commitments: make([]types.Commitment, 0),
		Items:       make([]types.CommitmentItem, 0),
		Offerings:   make([]types.Offering, 0),
		Templates:   make([]types.DeliverableTemplate, 0),
		Lines:       make([]string, 0),
	}
	if len(selectedIDs) == 0 {
		return snap, nil
	}

	commitments, err := r.Catalog.ListCommitments(ctx, tenantID, selectedIDs)
	if err != nil {
		return types.ScopeSnapshot{}, err
	}
	snap.Commitments = commitments

	offeringOrder := make([]string, 0)
	seenOffering := make(map[string]bool)
	for _, c := range commitments {
		for _, it := range c.Items {
			snap.Items = append(snap.Items, it)
			if it.OfferingID != "" && !seenOffering[it.OfferingID] {
				seenOffering[it.OfferingID] = true
				offeringOrder = append(offeringOrder, it.OfferingID)
			}
		}
	}
	if len(offeringOrder) == 0 {
		return snap, nil
	}

	offerings, err := r.Catalog.ListOfferings(ctx, tenantID, offeringOrder)
	if err != nil {
		return types.ScopeSnapshot{}, err
	}
	snap.Offerings = offerings
	offeringByID := make(map[string]types.Offering, len(offerings))
	for _, o := range offerings {
		offeringByID[o.ID] = o
	}

	templates, err := r.Catalog.ListTemplatesByOffering(ctx, tenantID, offeringOrder)
	if err != nil {
		return types.ScopeSnapshot{}, err
	}
	snap.Templates = templates
	templatesByOffering := make(map[string][]types.DeliverableTemplate)
	for _, tpl := range templates {
		templatesByOffering[tpl.OfferingID] = append(templatesByOffering[tpl.OfferingID], tpl)
	}

	for _, c := range commitments {
		for _, it := range c.Items {
			o, ok := offeringByID[it.OfferingID]
			if !ok {
				continue
			}
			for _, tpl := range templatesByOffering[o.ID] {
				snap.Lines = append(snap.Lines, fmt.Sprintf("%s — %s", o.Name, tpl.Name))
			}
		}
	}
	return snap, nil
}
