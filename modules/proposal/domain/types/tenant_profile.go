package types

// TenantProfile is the slice of the tenant/branding record this module
// consumes: identity and tax fields for the contract header, the logo
// object key, and the optional tenant-scoped contract template. The
// record itself is owned elsewhere.
type TenantProfile struct {
	ID                 string `json:"id"`
	Slug               string `json:"slug"`
	Name               string `json:"name"`
	TaxID              string `json:"tax_id"`
	Address            string `json:"address"`
	LogoPath           string `json:"logo_path"`
	ContractTemplateID string `json:"contract_template_id"`
	ContractTemplate   string `json:"-"`
}
