package ports

import "context"

// CreatedDocument is the outcome of a document upload: the provider's
// document id and the signer entry matched to the requested signer.
type CreatedDocument struct {
	DocumentID string
	SignerID   string
}

// SigningGateway is the e-signature protocol boundary. CreateDocument
// and CreateSigningLink are the irrevocable operations guarded by the
// state machine; GetStatus is advisory and used only by reconciliation.
type SigningGateway interface {
	CreateDocument(ctx context.Context, name string, signerName string, signerEmail string, file []byte) (CreatedDocument, error)
	CreateSigningLink(ctx context.Context, signerID string) (string, error)
	// GetStatus returns "" without an error when the provider does not
	// know the document; callers must treat any failure as "no news".
	GetStatus(ctx context.Context, documentID string) (string, error)
}
