package types

type Commitment struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []CommitmentItem
}

type CommitmentItem struct {
	ID           string `json:"id"`
	CommitmentID string `json:"commitment_id"`
	OfferingID   string `json:"offering_id"`
	Quantity     int    `json:"quantity"`
}

type Offering struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DeliverableTemplate struct {
	ID         string `json:"id"`
	OfferingID string `json:"offering_id"`
	Name       string `json:"name"`
}

// ScopeSnapshot is derived, never stored: the live resolution of a
// proposal's frozen SelectedIDs against the catalog at read or sign
// time. Lines is the flattened human-readable form shared by the
// contract renderer and the UI preview.
type ScopeSnapshot struct {
	Commitments []Commitment          `json:"commitments"`
	Items       []CommitmentItem      `json:"items"`
	Offerings   []Offering            `json:"offerings"`
	Templates   []DeliverableTemplate `json:"templates"`
	Lines       []string              `json:"lines"`
}
